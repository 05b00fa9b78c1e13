package members

import (
	"context"
	"database/sql"
	"strings"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Store struct{ conn *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{conn: conn} }

func (s *Store) GetByID(ctx context.Context, dbtx db.DBTX, memberID int64) (*MemberResponse, error) {
	const q = `
	SELECT member_id, email, full_name, membership_number, role, is_active, created_at
	FROM members WHERE member_id = ?`

	var m MemberResponse
	var active int
	err := dbtx.QueryRowContext(ctx, q, memberID).Scan(
		&m.MemberID, &m.Email, &m.FullName, &m.MembershipNumber, &m.Role, &active, &m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound("member not found")
		}
		return nil, err
	}
	m.IsActive = active != 0
	return &m, nil
}

func (s *Store) List(ctx context.Context, q MemberSearchQuery, p Page) ([]MemberResponse, int64, error) {
	where := "WHERE 1=1"
	args := []any{}
	if q.Role != nil {
		where += " AND role = ?"
		args = append(args, *q.Role)
	}
	if q.ActiveOnly {
		where += " AND is_active = 1"
	}
	if q.Search != nil {
		where += " AND (email LIKE ? OR full_name LIKE ? OR membership_number LIKE ?)"
		needle := "%" + *q.Search + "%"
		args = append(args, needle, needle, needle)
	}

	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	selectSQL := `
	SELECT member_id, email, full_name, membership_number, role, is_active, created_at
	FROM members
	` + where + `
	ORDER BY member_id ` + order + `
	LIMIT ? OFFSET ?`

	queryArgs := append(append([]any{}, args...), p.Limit, p.Offset)
	rows, err := s.conn.QueryContext(ctx, selectSQL, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []MemberResponse{}
	for rows.Next() {
		var m MemberResponse
		var active int
		if err := rows.Scan(&m.MemberID, &m.Email, &m.FullName, &m.MembershipNumber, &m.Role, &active, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		m.IsActive = active != 0
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM members `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) SetRoleTx(ctx context.Context, dbtx db.DBTX, memberID int64, role string) error {
	res, err := dbtx.ExecContext(ctx, `UPDATE members SET role = ? WHERE member_id = ?`, role, memberID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// aff is also 0 when the role is unchanged, so verify existence
		var one int
		if err := dbtx.QueryRowContext(ctx, `SELECT 1 FROM members WHERE member_id = ?`, memberID).Scan(&one); err != nil {
			if err == sql.ErrNoRows {
				return apperr.ErrNotFound("member not found")
			}
			return err
		}
	}
	return nil
}

func (s *Store) SetActiveTx(ctx context.Context, dbtx db.DBTX, memberID int64, active bool) error {
	res, err := dbtx.ExecContext(ctx, `UPDATE members SET is_active = ? WHERE member_id = ?`, active, memberID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		var one int
		if err := dbtx.QueryRowContext(ctx, `SELECT 1 FROM members WHERE member_id = ?`, memberID).Scan(&one); err != nil {
			if err == sql.ErrNoRows {
				return apperr.ErrNotFound("member not found")
			}
			return err
		}
	}
	return nil
}
