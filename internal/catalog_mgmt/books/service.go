package books

import (
	"context"
	"database/sql"
	"strings"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Service struct {
	conn  *sql.DB
	store *Store
}

func NewService(conn *sql.DB) *Service {
	return &Service{conn: conn, store: NewStore(conn)}
}

// Store exposes the counter operations so the ledger and the merger can embed
// availability adjustments inside their own transactional units. Counter
// writes never happen outside this package.
func (s *Service) Store() *Store { return s.store }

func (s *Service) Create(ctx context.Context, in CreateBookRequest) (*BookResponse, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Author) == "" {
		return nil, apperr.ErrInvalid("title and author are required")
	}
	total := 1
	if in.TotalCopies != nil {
		total = *in.TotalCopies
	}
	if total < 0 {
		return nil, apperr.ErrInvalid("total_copies must be >= 0")
	}

	var id int64
	err := db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		id, err = s.store.InsertTx(ctx, tx, in, total)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, s.conn, id)
}

// Get reads the row and its active-lend count in one read-only snapshot.
func (s *Service) Get(ctx context.Context, bookID int64) (*BookResponse, error) {
	var out *BookResponse
	err := db.ReadOnly(ctx, s.conn, func(ctx context.Context, tx db.DBTX) error {
		var err error
		out, err = s.store.GetByID(ctx, tx, bookID)
		if err != nil {
			return err
		}
		active, err := s.store.CountActiveLends(ctx, tx, bookID)
		if err != nil {
			return err
		}
		out.ActiveLends = &active
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, q BookSearchQuery, p Page) (*ListBooksResponse, error) {
	items, total, err := s.store.List(ctx, q, p)
	if err != nil {
		return nil, err
	}
	return &ListBooksResponse{Items: items, Total: total}, nil
}

func (s *Service) Update(ctx context.Context, bookID int64, in UpdateBookRequest) (*BookResponse, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, apperr.ErrInvalid("title must not be empty")
	}
	if in.Author != nil && strings.TrimSpace(*in.Author) == "" {
		return nil, apperr.ErrInvalid("author must not be empty")
	}
	if in.TotalCopies != nil && *in.TotalCopies < 0 {
		return nil, apperr.ErrInvalid("total_copies must be >= 0")
	}

	err := db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		if in.TotalCopies != nil {
			if err := s.store.setTotalCopiesTx(ctx, tx, bookID, *in.TotalCopies); err != nil {
				return err
			}
		}
		return s.store.updateFieldsTx(ctx, tx, bookID, in)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, s.conn, bookID)
}

// Delete removes a book unless active transactions still reference it.
func (s *Service) Delete(ctx context.Context, bookID int64) error {
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, _, err := s.store.lockRow(ctx, tx, bookID); err != nil {
			return err
		}
		active, err := s.store.CountActiveLends(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.ErrConflict("book has active lending transactions")
		}
		return s.store.DeleteTx(ctx, tx, bookID)
	})
}

// AdjustAvailability applies delta to the availability counter as its own
// atomic unit.
func (s *Service) AdjustAvailability(ctx context.Context, bookID int64, delta int) error {
	if delta == 0 {
		return apperr.ErrInvalid("delta must not be zero")
	}
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		return s.store.AdjustAvailabilityTx(ctx, tx, bookID, delta)
	})
}
