package members

import (
	"context"
	"database/sql"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/authz"
	"library-backend/internal/platform/db"
)

type Service struct {
	conn  *sql.DB
	store *Store
}

func NewService(conn *sql.DB) *Service {
	return &Service{conn: conn, store: NewStore(conn)}
}

func (s *Service) Get(ctx context.Context, memberID int64) (*MemberResponse, error) {
	if memberID <= 0 {
		return nil, apperr.ErrInvalid("member_id is required")
	}
	return s.store.GetByID(ctx, s.conn, memberID)
}

func (s *Service) List(ctx context.Context, q MemberSearchQuery, p Page) (*ListMembersResponse, error) {
	if q.Role != nil {
		if _, ok := authz.ParseRole(*q.Role); !ok {
			return nil, apperr.ErrInvalid("role must be 'member' or 'librarian'")
		}
	}
	items, total, err := s.store.List(ctx, q, p)
	if err != nil {
		return nil, err
	}
	return &ListMembersResponse{Items: items, Total: total}, nil
}

// SetRole changes a member's role. Callers cannot change their own role.
func (s *Service) SetRole(ctx context.Context, caller authz.Caller, memberID int64, rawRole string) (*MemberResponse, error) {
	if memberID <= 0 {
		return nil, apperr.ErrInvalid("member_id is required")
	}
	role, ok := authz.ParseRole(rawRole)
	if !ok {
		return nil, apperr.ErrInvalid("role must be 'member' or 'librarian'")
	}
	if memberID == caller.MemberID {
		return nil, apperr.ErrConflict("cannot change your own role")
	}

	err := db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		return s.store.SetRoleTx(ctx, tx, memberID, string(role))
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, s.conn, memberID)
}

// SetActive enables or disables a membership. Disabling blocks logins and new
// borrows; existing transactions stay returnable.
func (s *Service) SetActive(ctx context.Context, caller authz.Caller, memberID int64, active bool) (*MemberResponse, error) {
	if memberID <= 0 {
		return nil, apperr.ErrInvalid("member_id is required")
	}
	if memberID == caller.MemberID && !active {
		return nil, apperr.ErrConflict("cannot deactivate your own account")
	}

	err := db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		return s.store.SetActiveTx(ctx, tx, memberID, active)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, s.conn, memberID)
}
