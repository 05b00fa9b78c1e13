package auth

import (
	"context"
	"database/sql"
	"errors"

	"library-backend/internal/platform/db"
)

// Account is a member profile joined with its credential row. Role and
// IsActive live on the members table; the password hash is kept separate so
// member listings never touch it.
type Account struct {
	MemberID         int64
	Email            string
	FullName         string
	MembershipNumber string
	PasswordHash     string
	Role             string
	IsActive         bool
}

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, a *Account) error
}

type Store struct{ conn *sql.DB }

func NewStore(conn *sql.DB) AccountStore {
	return &Store{conn: conn}
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `
	SELECT m.member_id, m.email, m.full_name, m.membership_number, a.password_hash, m.role, m.is_active
	FROM members m
	JOIN auth_accounts a ON a.member_id = m.member_id
	WHERE m.email = ?
	LIMIT 1`

	var acct Account
	var activeInt int
	err := s.conn.QueryRowContext(ctx, q, email).Scan(
		&acct.MemberID, &acct.Email, &acct.FullName, &acct.MembershipNumber,
		&acct.PasswordHash, &acct.Role, &activeInt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acct.IsActive = activeInt != 0
	return &acct, nil
}

// Create inserts the member profile and its credential row as one unit.
func (s *Store) Create(ctx context.Context, a *Account) error {
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		const qMember = `
		INSERT INTO members (email, full_name, membership_number, role, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, UTC_TIMESTAMP())`

		res, err := tx.ExecContext(ctx, qMember, a.Email, a.FullName, a.MembershipNumber, a.Role)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		a.MemberID = id

		const qAccount = `
		INSERT INTO auth_accounts (member_id, password_hash, created_at)
		VALUES (?, ?, UTC_TIMESTAMP())`

		_, err = tx.ExecContext(ctx, qAccount, a.MemberID, a.PasswordHash)
		return err
	})
}
