package books

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apperr"
)

// validation-only service: requests below are rejected before any DB access
func validationSvc() *Service { return &Service{} }

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func Test_Create_Validation(t *testing.T) {
	svc := validationSvc()

	tests := []struct {
		name string
		req  CreateBookRequest
	}{
		{"missing title", CreateBookRequest{Author: "A"}},
		{"blank title", CreateBookRequest{Title: "   ", Author: "A"}},
		{"missing author", CreateBookRequest{Title: "T"}},
		{"negative total", CreateBookRequest{Title: "T", Author: "A", TotalCopies: intp(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
		})
	}
}

func Test_Update_Validation(t *testing.T) {
	svc := validationSvc()

	tests := []struct {
		name string
		req  UpdateBookRequest
	}{
		{"blank title", UpdateBookRequest{Title: strp("  ")}},
		{"blank author", UpdateBookRequest{Author: strp("")}},
		{"negative total", UpdateBookRequest{TotalCopies: intp(-2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), 1, tt.req)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
		})
	}
}

func Test_AdjustAvailability_ZeroDeltaRejected(t *testing.T) {
	svc := validationSvc()
	err := svc.AdjustAvailability(context.Background(), 1, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}
