package lends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/authz"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// validation-only service: requests below are rejected before any DB access
func validationSvc() *Service {
	return &Service{clock: fixedClock{t: testNow}, id: ulidGen{}}
}

func Test_IsOverdue(t *testing.T) {
	now := testNow
	tests := []struct {
		name string
		lend Lend
		want bool
	}{
		{"active past due", Lend{Status: StatusActive, DueAt: now.Add(-24 * time.Hour)}, true},
		{"active due in future", Lend{Status: StatusActive, DueAt: now.Add(24 * time.Hour)}, false},
		{"active due exactly now", Lend{Status: StatusActive, DueAt: now}, false},
		{"completed past due", Lend{Status: StatusCompleted, DueAt: now.Add(-24 * time.Hour)}, false},
		{"completed due in future", Lend{Status: StatusCompleted, DueAt: now.Add(24 * time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lend.IsOverdue(now))
		})
	}
}

func Test_ParseKind(t *testing.T) {
	k, ok := ParseKind("borrow")
	assert.True(t, ok)
	assert.Equal(t, KindBorrow, k)

	k, ok = ParseKind("reserve")
	assert.True(t, ok)
	assert.Equal(t, KindReserve, k)

	for _, s := range []string{"", "Borrow", "rent", "hold"} {
		_, ok := ParseKind(s)
		assert.False(t, ok, s)
	}
}

func Test_ParseDueAt(t *testing.T) {
	now := testNow

	got, err := parseDueAt("2026-03-20", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), got)

	// a bare date of today is fine even though midnight already passed
	_, err = parseDueAt("2026-03-15", now)
	require.NoError(t, err)

	got, err = parseDueAt("2026-03-16T09:30:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 16, 9, 30, 0, 0, time.UTC), got)

	for _, raw := range []string{"2026-03-14", "2026-03-15T11:59:59Z", "not-a-date", ""} {
		_, err := parseDueAt(raw, now)
		require.Error(t, err, raw)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err), raw)
	}
}

func Test_Create_RejectedBeforeAnyWrite(t *testing.T) {
	svc := validationSvc()
	librarian := authz.Caller{MemberID: 1, Role: authz.RoleLibrarian, Active: true}
	member := authz.Caller{MemberID: 2, Role: authz.RoleMember, Active: true}

	tests := []struct {
		name   string
		caller authz.Caller
		req    CreateLendRequest
		code   apperr.Code
	}{
		{
			"unknown kind",
			librarian,
			CreateLendRequest{BookID: 1, MemberID: 2, Kind: "rent", DueAt: "2026-03-20"},
			apperr.CodeInvalidArgument,
		},
		{
			"missing book id",
			librarian,
			CreateLendRequest{Kind: "borrow", DueAt: "2026-03-20"},
			apperr.CodeInvalidArgument,
		},
		{
			"past due date",
			librarian,
			CreateLendRequest{BookID: 1, MemberID: 2, Kind: "borrow", DueAt: "2020-01-01"},
			apperr.CodeInvalidArgument,
		},
		{
			"member borrowing for someone else",
			member,
			CreateLendRequest{BookID: 1, MemberID: 99, Kind: "borrow", DueAt: "2026-03-20"},
			apperr.CodeUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.caller, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func Test_Return_EmptyULIDRejected(t *testing.T) {
	svc := validationSvc()
	_, err := svc.Return(context.Background(), authz.Caller{MemberID: 1, Role: authz.RoleLibrarian}, "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}
