package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	ulid "github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/platform/apperr"
)

const tokenTTL = 24 * time.Hour

type Service struct {
	store  AccountStore
	secret []byte
}

func NewService(conn *sql.DB, secret []byte) *Service {
	return &Service{store: NewStore(conn), secret: secret}
}

// NewServiceWithStore is for tests.
func NewServiceWithStore(store AccountStore, secret []byte) *Service {
	return &Service{store: store, secret: secret}
}

// Login verifies the credentials and issues a session token carrying the
// member id, role and active flag. Disabled accounts cannot log in.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", apperr.ErrUnauthorized("authentication failed")
	}
	if !acct.IsActive {
		return "", apperr.ErrUnauthorized("account disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", apperr.ErrUnauthorized("authentication failed")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(acct.MemberID, 10),
		"role": acct.Role,
		"act":  acct.IsActive,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	})

	return token.SignedString(s.secret)
}

// Signup registers a new member with the member role. The membership number
// is generated when the caller does not bring one.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Account, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.ErrInvalid("a valid email is required")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, apperr.ErrInvalid("full_name is required")
	}
	if len(req.Password) < 8 {
		return nil, apperr.ErrInvalid("password must be at least 8 characters")
	}

	exists, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, apperr.ErrConflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	number := ""
	if req.MembershipNumber != nil {
		number = strings.TrimSpace(*req.MembershipNumber)
	}
	if number == "" {
		number = "LIB-" + newULID()
	}

	acct := &Account{
		Email:            email,
		FullName:         strings.TrimSpace(req.FullName),
		MembershipNumber: number,
		PasswordHash:     string(hash),
		Role:             "member",
		IsActive:         true,
	}
	if err := s.store.Create(ctx, acct); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return nil, apperr.ErrConflict("email or membership number already registered")
		}
		return nil, err
	}
	return acct, nil
}

func newULID() string {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
