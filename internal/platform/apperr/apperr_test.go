package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalid("bad"), http.StatusBadRequest},
		{ErrNotFound("missing"), http.StatusNotFound},
		{ErrUnavailable("no copies"), http.StatusConflict},
		{ErrInvariant("over total"), http.StatusInternalServerError},
		{ErrUnauthorized("nope"), http.StatusForbidden},
		{ErrConflict("already returned"), http.StatusConflict},
		{ErrExternal("gemini down"), http.StatusBadGateway},
		{ErrParse("not a list"), http.StatusBadGateway},
		{ErrInternal("boom"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.err), tt.err.Error())
	}
}

func Test_CodeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("create lend: %w", ErrUnavailable("no copies"))
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(err))
}

func Test_BodyFrom(t *testing.T) {
	body := BodyFrom(ErrConflict("already returned"))
	assert.Equal(t, CodeConflict, body.Error.Code)
	assert.Equal(t, "already returned", body.Error.Message)

	body = BodyFrom(errors.New("plain"))
	assert.Equal(t, CodeInternal, body.Error.Code)
}
