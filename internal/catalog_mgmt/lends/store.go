package lends

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Store struct{ conn *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{conn: conn} }

// MemberActiveTx reports whether the member exists and is active.
func (s *Store) MemberActiveTx(ctx context.Context, dbtx db.DBTX, memberID int64) (bool, error) {
	const q = `SELECT is_active FROM members WHERE member_id = ?`
	var active int
	if err := dbtx.QueryRowContext(ctx, q, memberID).Scan(&active); err != nil {
		if err == sql.ErrNoRows {
			return false, apperr.ErrNotFound("member not found")
		}
		return false, err
	}
	return active != 0, nil
}

func (s *Store) InsertTx(ctx context.Context, dbtx db.DBTX, m *Lend) error {
	const q = `
	INSERT INTO lending_transactions
	(lend_ulid, book_id, member_id, kind, status, borrowed_at, due_at)
	VALUES (?, ?, ?, ?, 'active', ?, ?)`

	res, err := dbtx.ExecContext(ctx, q, m.LendULID, m.BookID, m.MemberID, m.Kind, m.BorrowedAt, m.DueAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.LendID = id
	m.Status = StatusActive
	return nil
}

// GetByULIDTx loads a transaction; forUpdate locks the row so a competing
// return blocks until this transaction resolves.
func (s *Store) GetByULIDTx(ctx context.Context, dbtx db.DBTX, ulid string, forUpdate bool) (*Lend, error) {
	q := `
	SELECT lend_id, lend_ulid, book_id, member_id, kind, status, borrowed_at, due_at, returned_at
	FROM lending_transactions WHERE lend_ulid = ?`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	var m Lend
	err := dbtx.QueryRowContext(ctx, q, ulid).Scan(
		&m.LendID, &m.LendULID, &m.BookID, &m.MemberID, &m.Kind, &m.Status,
		&m.BorrowedAt, &m.DueAt, &m.ReturnedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound("lending transaction not found")
		}
		return nil, err
	}
	return &m, nil
}

// CompleteTx stamps the active -> completed transition. The status guard in
// the WHERE clause means a row that already completed is left untouched.
func (s *Store) CompleteTx(ctx context.Context, dbtx db.DBTX, lendID int64, returnedAt time.Time) error {
	const q = `
	UPDATE lending_transactions
	SET status = 'completed', returned_at = ?
	WHERE lend_id = ? AND status = 'active'`

	res, err := dbtx.ExecContext(ctx, q, returnedAt, lendID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.ErrConflict("transaction already completed")
	}
	return nil
}

type lendRow struct {
	Lend
	BookTitle  string
	MemberName string
}

func buildWhere(f LendFilter, now time.Time) (string, []any) {
	where := "WHERE 1=1"
	args := []any{}
	if f.MemberID != nil {
		where += " AND l.member_id = ?"
		args = append(args, *f.MemberID)
	}
	if f.BookID != nil {
		where += " AND l.book_id = ?"
		args = append(args, *f.BookID)
	}
	if f.Status != nil {
		where += " AND l.status = ?"
		args = append(args, string(*f.Status))
	}
	if f.Kind != nil {
		where += " AND l.kind = ?"
		args = append(args, string(*f.Kind))
	}
	if f.OverdueOnly {
		where += " AND l.status = 'active' AND l.due_at < ?"
		args = append(args, now)
	}
	return where, args
}

func (s *Store) List(ctx context.Context, f LendFilter, p Page, now time.Time) ([]lendRow, int64, error) {
	where, args := buildWhere(f, now)

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
	SELECT l.lend_id, l.lend_ulid, l.book_id, l.member_id, l.kind, l.status,
		l.borrowed_at, l.due_at, l.returned_at,
		b.title, m.full_name
	FROM lending_transactions l
	JOIN books b ON b.book_id = l.book_id
	JOIN members m ON m.member_id = l.member_id
	` + where + `
	ORDER BY l.borrowed_at ` + order + `, l.lend_id ` + order + `
	LIMIT ? OFFSET ?`

	queryArgs := append(append([]any{}, args...), p.Limit, p.Offset)
	rows, err := s.conn.QueryContext(ctx, selectSQL, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []lendRow{}
	for rows.Next() {
		var r lendRow
		if err := rows.Scan(
			&r.LendID, &r.LendULID, &r.BookID, &r.MemberID, &r.Kind, &r.Status,
			&r.BorrowedAt, &r.DueAt, &r.ReturnedAt,
			&r.BookTitle, &r.MemberName,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countSQL := `
	SELECT COUNT(*)
	FROM lending_transactions l
	JOIN books b ON b.book_id = l.book_id
	JOIN members m ON m.member_id = l.member_id
	` + where
	var total int64
	if err := s.conn.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) Stats(ctx context.Context, now time.Time) (*StatsResponse, error) {
	const q = `
	SELECT
		COALESCE(SUM(status = 'active'), 0),
		COALESCE(SUM(status = 'active' AND due_at < ?), 0),
		COALESCE(SUM(status = 'completed'), 0)
	FROM lending_transactions`

	var st StatsResponse
	if err := s.conn.QueryRowContext(ctx, q, now).Scan(&st.ActiveCount, &st.OverdueCount, &st.CompletedCount); err != nil {
		return nil, err
	}
	return &st, nil
}
