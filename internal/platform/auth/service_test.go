package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/platform/apperr"
)

type memAccountStore struct {
	byEmail map[string]*Account
	nextID  int64
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{byEmail: map[string]*Account{}, nextID: 1}
}

func (m *memAccountStore) GetByEmail(_ context.Context, email string) (*Account, error) {
	if a, ok := m.byEmail[email]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memAccountStore) Create(_ context.Context, a *Account) error {
	a.MemberID = m.nextID
	m.nextID++
	cp := *a
	m.byEmail[a.Email] = &cp
	return nil
}

var testSecret = []byte("test-secret")

func seedAccount(t *testing.T, store *memAccountStore, email, password, role string, active bool) *Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	acct := &Account{
		Email:            email,
		FullName:         "Test Member",
		MembershipNumber: "LIB-TEST",
		PasswordHash:     string(hash),
		Role:             role,
		IsActive:         active,
	}
	require.NoError(t, store.Create(context.Background(), acct))
	return acct
}

func Test_Login_IssuesTokenWithProfileClaims(t *testing.T) {
	store := newMemAccountStore()
	seedAccount(t, store, "lib@example.com", "password123", "librarian", true)
	svc := NewServiceWithStore(store, testSecret)

	tokenStr, err := svc.Login(context.Background(), "lib@example.com", "password123")
	require.NoError(t, err)

	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (any, error) { return testSecret, nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "1", claims["sub"])
	assert.Equal(t, "librarian", claims["role"])
	assert.Equal(t, true, claims["act"])
}

func Test_Login_Failures(t *testing.T) {
	store := newMemAccountStore()
	seedAccount(t, store, "member@example.com", "password123", "member", true)
	seedAccount(t, store, "gone@example.com", "password123", "member", false)
	svc := NewServiceWithStore(store, testSecret)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "password123"},
		{"wrong password", "member@example.com", "wrong"},
		{"disabled account", "gone@example.com", "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
		})
	}
}

func Test_Signup_DefaultsAndValidation(t *testing.T) {
	store := newMemAccountStore()
	svc := NewServiceWithStore(store, testSecret)

	acct, err := svc.Signup(context.Background(), SignupRequest{
		Email:    "New@Example.com",
		FullName: "New Member",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", acct.Email)
	assert.Equal(t, "member", acct.Role)
	assert.True(t, acct.IsActive)
	assert.Contains(t, acct.MembershipNumber, "LIB-")

	// duplicate email
	_, err = svc.Signup(context.Background(), SignupRequest{
		Email:    "new@example.com",
		FullName: "Other",
		Password: "password123",
	})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	// rejected before any store access
	_, err = svc.Signup(context.Background(), SignupRequest{Email: "bad", FullName: "x", Password: "password123"})
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	_, err = svc.Signup(context.Background(), SignupRequest{Email: "ok@example.com", FullName: "x", Password: "short"})
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}
