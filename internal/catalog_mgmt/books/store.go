package books

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Store struct{ conn *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{conn: conn} }

// ===== copy counters =====

// lockRow takes the InnoDB row lock that serializes every counter mutation
// for the book. Must run inside a transaction.
func (s *Store) lockRow(ctx context.Context, dbtx db.DBTX, bookID int64) (available, total int, err error) {
	const q = `SELECT available_copies, total_copies FROM books WHERE book_id = ? FOR UPDATE`
	row := dbtx.QueryRowContext(ctx, q, bookID)
	if err = row.Scan(&available, &total); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, apperr.ErrNotFound("book not found")
		}
		return 0, 0, err
	}
	return available, total, nil
}

// AdjustAvailabilityTx applies delta to available_copies as a check-and-apply
// under the row lock: the new value must stay within [0, total_copies] or
// nothing is written. Callers own the enclosing transaction, so a failed
// adjustment rolls back together with whatever the caller was doing.
func (s *Store) AdjustAvailabilityTx(ctx context.Context, dbtx db.DBTX, bookID int64, delta int) error {
	available, total, err := s.lockRow(ctx, dbtx, bookID)
	if err != nil {
		return err
	}

	next := available + delta
	if next < 0 {
		return apperr.ErrUnavailable("no available copies")
	}
	if next > total {
		return apperr.ErrInvariant("available copies would exceed total copies")
	}

	const q = `UPDATE books SET available_copies = ? WHERE book_id = ?`
	res, err := dbtx.ExecContext(ctx, q, next, bookID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff > 1 {
		return apperr.ErrInternal("availability update touched multiple rows")
	}
	return nil
}

// AddFoundCopyTx raises both counters by one: a physically found copy grows
// the collection and is immediately loanable. Both move in the same statement
// so the invariant cannot be observed broken.
func (s *Store) AddFoundCopyTx(ctx context.Context, dbtx db.DBTX, bookID int64) error {
	if _, _, err := s.lockRow(ctx, dbtx, bookID); err != nil {
		return err
	}
	const q = `UPDATE books SET total_copies = total_copies + 1, available_copies = available_copies + 1 WHERE book_id = ?`
	_, err := dbtx.ExecContext(ctx, q, bookID)
	return err
}

// setTotalCopiesTx moves total_copies and shifts available_copies by the same
// delta, keeping the on-loan count unchanged. Runs under the row lock.
func (s *Store) setTotalCopiesTx(ctx context.Context, dbtx db.DBTX, bookID int64, newTotal int) error {
	available, total, err := s.lockRow(ctx, dbtx, bookID)
	if err != nil {
		return err
	}
	if newTotal < 0 {
		return apperr.ErrInvalid("total_copies must be >= 0")
	}
	newAvailable := available + (newTotal - total)
	if newAvailable < 0 {
		return apperr.ErrConflict("more copies are on loan than the new total allows")
	}
	const q = `UPDATE books SET total_copies = ?, available_copies = ? WHERE book_id = ?`
	_, err = dbtx.ExecContext(ctx, q, newTotal, newAvailable, bookID)
	return err
}

// ===== CRUD =====

func (s *Store) InsertTx(ctx context.Context, dbtx db.DBTX, in CreateBookRequest, totalCopies int) (int64, error) {
	const q = `
	INSERT INTO books (title, author, isbn, category, shelf_location, description, total_copies, available_copies, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`

	res, err := dbtx.ExecContext(ctx, q,
		in.Title, in.Author, in.ISBN, in.Category, in.ShelfLocation, in.Description,
		totalCopies, totalCopies,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetByID(ctx context.Context, dbtx db.DBTX, bookID int64) (*BookResponse, error) {
	const q = `
	SELECT book_id, title, author, isbn, category, shelf_location, description,
		total_copies, available_copies, created_at
	FROM books WHERE book_id = ?`

	var r BookResponse
	var isbn, category, shelf, desc sql.NullString
	err := dbtx.QueryRowContext(ctx, q, bookID).Scan(
		&r.BookID, &r.Title, &r.Author, &isbn, &category, &shelf, &desc,
		&r.TotalCopies, &r.AvailableCopies, &r.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound("book not found")
		}
		return nil, err
	}
	r.ISBN = nullStr(isbn)
	r.Category = nullStr(category)
	r.ShelfLocation = nullStr(shelf)
	r.Description = nullStr(desc)
	return &r, nil
}

// FindByTitleTx resolves a book by case-insensitive exact title match.
// Returns nil without error when there is no match.
func (s *Store) FindByTitleTx(ctx context.Context, dbtx db.DBTX, title string) (*int64, error) {
	const q = `SELECT book_id FROM books WHERE LOWER(title) = LOWER(?) LIMIT 1`
	var id int64
	err := dbtx.QueryRowContext(ctx, q, title).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *Store) List(ctx context.Context, q BookSearchQuery, p Page) ([]BookResponse, int64, error) {
	where := "WHERE 1=1"
	args := []any{}
	if q.Title != nil {
		where += " AND title LIKE ?"
		args = append(args, "%"+*q.Title+"%")
	}
	if q.Author != nil {
		where += " AND author = ?"
		args = append(args, *q.Author)
	}
	if q.Category != nil {
		where += " AND category = ?"
		args = append(args, *q.Category)
	}
	if q.AvailableOnly {
		where += " AND available_copies > 0"
	}

	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	selectSQL := `
	SELECT book_id, title, author, isbn, category, shelf_location, description,
		total_copies, available_copies, created_at
	FROM books
	` + where + `
	ORDER BY created_at ` + order + `, book_id ` + order + `
	LIMIT ? OFFSET ?`

	queryArgs := append(append([]any{}, args...), p.Limit, p.Offset)
	rows, err := s.conn.QueryContext(ctx, selectSQL, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []BookResponse{}
	for rows.Next() {
		var r BookResponse
		var isbn, category, shelf, desc sql.NullString
		if err := rows.Scan(
			&r.BookID, &r.Title, &r.Author, &isbn, &category, &shelf, &desc,
			&r.TotalCopies, &r.AvailableCopies, &r.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		r.ISBN = nullStr(isbn)
		r.Category = nullStr(category)
		r.ShelfLocation = nullStr(shelf)
		r.Description = nullStr(desc)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM books ` + where
	if err := s.conn.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) updateFieldsTx(ctx context.Context, dbtx db.DBTX, bookID int64, in UpdateBookRequest) error {
	sets := []string{}
	args := []any{}
	if in.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *in.Title)
	}
	if in.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *in.Author)
	}
	if in.ISBN != nil {
		sets = append(sets, "isbn = ?")
		args = append(args, *in.ISBN)
	}
	if in.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *in.Category)
	}
	if in.ShelfLocation != nil {
		sets = append(sets, "shelf_location = ?")
		args = append(args, *in.ShelfLocation)
	}
	if in.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *in.Description)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, bookID)
	q := fmt.Sprintf(`UPDATE books SET %s WHERE book_id = ?`, strings.Join(sets, ", "))
	res, err := dbtx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// MySQL reports 0 when the values did not change; verify existence.
		if _, err := s.GetByID(ctx, dbtx, bookID); err != nil {
			return err
		}
	}
	return nil
}

// CountActiveLends counts the open transactions still referencing the book.
func (s *Store) CountActiveLends(ctx context.Context, dbtx db.DBTX, bookID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM lending_transactions WHERE book_id = ? AND status = 'active'`
	var n int64
	if err := dbtx.QueryRowContext(ctx, q, bookID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) DeleteTx(ctx context.Context, dbtx db.DBTX, bookID int64) error {
	const q = `DELETE FROM books WHERE book_id = ?`
	res, err := dbtx.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.ErrNotFound("book not found")
	}
	return nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
