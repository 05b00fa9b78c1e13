package lends

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"library-backend/internal/catalog_mgmt/books"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/authz"
	"library-backend/internal/platform/db"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Service is the circulation ledger. Stock effects always go through the
// books store's adjustment operation inside the same transaction as the
// ledger write, so either both commit or neither does.
type Service struct {
	conn  *sql.DB
	store *Store
	books *books.Store
	clock Clock
	id    IDGen
}

func NewService(conn *sql.DB, bookStore *books.Store) *Service {
	return &Service{
		conn:  conn,
		store: NewStore(conn),
		books: bookStore,
		clock: realClock{},
		id:    ulidGen{},
	}
}

// Create opens a borrow or reserve transaction. Borrows decrement the
// availability counter; when no copy is free the whole operation fails with
// UNAVAILABLE and nothing is written.
func (s *Service) Create(ctx context.Context, caller authz.Caller, req CreateLendRequest) (*LendResponse, error) {
	kind, ok := ParseKind(req.Kind)
	if !ok {
		return nil, apperr.ErrInvalid("kind must be 'borrow' or 'reserve'")
	}
	if req.BookID <= 0 {
		return nil, apperr.ErrInvalid("book_id is required")
	}

	memberID := req.MemberID
	if memberID == 0 {
		memberID = caller.MemberID
	}
	if !caller.IsLibrarian() && memberID != caller.MemberID {
		return nil, apperr.ErrUnauthorized("members may only create their own transactions")
	}

	now := s.clock.Now()
	dueAt, err := parseDueAt(req.DueAt, now)
	if err != nil {
		return nil, err
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	lend := &Lend{
		LendULID:   idStr,
		BookID:     req.BookID,
		MemberID:   memberID,
		Kind:       kind,
		BorrowedAt: now,
		DueAt:      dueAt,
	}

	err = db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		active, err := s.store.MemberActiveTx(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if !active {
			return apperr.ErrInvalid("member is not active")
		}

		if kind == KindBorrow {
			// Locks the book row; fails the whole unit when no copy is free.
			if err := s.books.AdjustAvailabilityTx(ctx, tx, req.BookID, -1); err != nil {
				return err
			}
		} else {
			if _, err := s.books.GetByID(ctx, tx, req.BookID); err != nil {
				return err
			}
		}

		return s.store.InsertTx(ctx, tx, lend)
	})
	if err != nil {
		return nil, err
	}

	return s.getResponse(ctx, lend.LendULID)
}

// Return completes a transaction. Completed is terminal: a second return
// fails with CONFLICT and the availability counter moves exactly once.
func (s *Service) Return(ctx context.Context, caller authz.Caller, lendULID string) (*LendResponse, error) {
	if lendULID == "" {
		return nil, apperr.ErrInvalid("lend_ulid is required")
	}

	now := s.clock.Now()
	err := db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		lend, err := s.store.GetByULIDTx(ctx, tx, lendULID, true)
		if err != nil {
			return err
		}
		if !caller.IsLibrarian() && lend.MemberID != caller.MemberID {
			return apperr.ErrUnauthorized("members may only return their own transactions")
		}
		if lend.Status == StatusCompleted {
			return apperr.ErrConflict("transaction already completed")
		}

		if err := s.store.CompleteTx(ctx, tx, lend.LendID, now); err != nil {
			return err
		}

		if lend.Kind == KindBorrow {
			return s.books.AdjustAvailabilityTx(ctx, tx, lend.BookID, +1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.getResponse(ctx, lendULID)
}

// List returns transactions in scope: members see their own, librarians see
// everything and may filter by member.
func (s *Service) List(ctx context.Context, caller authz.Caller, f LendFilter, p Page) (*ListLendsResponse, error) {
	if !caller.IsLibrarian() {
		f.MemberID = &caller.MemberID
	}
	now := s.clock.Now()
	rows, total, err := s.store.List(ctx, f, p, now)
	if err != nil {
		return nil, err
	}

	items := make([]LendResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, buildResponse(r, now))
	}
	return &ListLendsResponse{Items: items, Total: total}, nil
}

// Overdue is the overdue view over active transactions, scoped like List.
func (s *Service) Overdue(ctx context.Context, caller authz.Caller, p Page) (*ListLendsResponse, error) {
	return s.List(ctx, caller, LendFilter{OverdueOnly: true}, p)
}

func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	return s.store.Stats(ctx, s.clock.Now())
}

func (s *Service) getResponse(ctx context.Context, lendULID string) (*LendResponse, error) {
	lend, err := s.store.GetByULIDTx(ctx, s.conn, lendULID, false)
	if err != nil {
		return nil, err
	}
	book, err := s.books.GetByID(ctx, s.conn, lend.BookID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	resp := buildResponse(lendRow{Lend: *lend, BookTitle: book.Title}, now)
	return &resp, nil
}

func buildResponse(r lendRow, now time.Time) LendResponse {
	resp := LendResponse{
		LendID:     r.LendID,
		LendULID:   r.LendULID,
		BookID:     r.BookID,
		BookTitle:  r.BookTitle,
		MemberID:   r.MemberID,
		MemberName: r.MemberName,
		Kind:       r.Kind,
		Status:     r.Status,
		BorrowedAt: r.BorrowedAt,
		DueAt:      r.DueAt,
		Overdue:    r.Lend.IsOverdue(now),
	}
	if r.ReturnedAt.Valid {
		v := r.ReturnedAt.Time
		resp.ReturnedAt = &v
	}
	return resp
}

// parseDueAt accepts an RFC3339 timestamp or a bare date. Timestamps must not
// be before now; bare dates must not be before today.
func parseDueAt(raw string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		if t.Before(now) {
			return time.Time{}, apperr.ErrInvalid("due_at must not be in the past")
		}
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.ErrInvalid("due_at must be RFC3339 or YYYY-MM-DD")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if t.Before(today) {
		return time.Time{}, apperr.ErrInvalid("due_at must not be in the past")
	}
	return t, nil
}
