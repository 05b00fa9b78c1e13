package books

import (
	"context"
	"crypto/rand"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	ulid "github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apperr"
)

// Requires a MySQL with docs/schema.sql loaded; set LIBRARY_TEST_DSN to run.

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("LIBRARY_TEST_DSN")
	if dsn == "" {
		t.Skip("LIBRARY_TEST_DSN not set")
	}
	conn, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	require.NoError(t, conn.Ping())
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newULID(t *testing.T) string {
	t.Helper()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), ulid.Monotonic(rand.Reader, 0))
	require.NoError(t, err)
	return id.String()
}

func createBook(t *testing.T, svc *Service, total int) int64 {
	t.Helper()
	res, err := svc.Create(context.Background(), CreateBookRequest{
		Title:       "stock-test " + newULID(t),
		Author:      "Test Author",
		TotalCopies: &total,
	})
	require.NoError(t, err)
	require.Equal(t, total, res.TotalCopies)
	require.Equal(t, total, res.AvailableCopies)
	return res.BookID
}

func Test_AdjustAvailability_Bounds(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	bookID := createBook(t, svc, 1)

	require.NoError(t, svc.AdjustAvailability(ctx, bookID, -1))

	// below zero
	err := svc.AdjustAvailability(ctx, bookID, -1)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))

	require.NoError(t, svc.AdjustAvailability(ctx, bookID, +1))

	// above total
	err = svc.AdjustAvailability(ctx, bookID, +1)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvariantViolation, apperr.CodeOf(err))

	got, err := svc.Get(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
	assert.Equal(t, 1, got.TotalCopies)
}

func Test_UpdateTotal_ShiftsAvailableByDelta(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	bookID := createBook(t, svc, 3)

	// one copy out on loan
	require.NoError(t, svc.AdjustAvailability(ctx, bookID, -1))

	five := 5
	got, err := svc.Update(ctx, bookID, UpdateBookRequest{TotalCopies: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalCopies)
	assert.Equal(t, 4, got.AvailableCopies)

	// shrinking below the number on loan is refused
	one := 1
	_, err = svc.Update(ctx, bookID, UpdateBookRequest{TotalCopies: &one})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func Test_Delete_BlockedByActiveLend(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn)
	ctx := context.Background()
	bookID := createBook(t, svc, 1)

	tag := newULID(t)
	res, err := conn.Exec(`
		INSERT INTO members (email, full_name, membership_number, role, is_active, created_at)
		VALUES (?, 'Delete Test', ?, 'member', 1, UTC_TIMESTAMP())`,
		tag+"@example.com", "LIB-"+tag)
	require.NoError(t, err)
	memberID, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = conn.Exec(`
		INSERT INTO lending_transactions (lend_ulid, book_id, member_id, kind, status, borrowed_at, due_at)
		VALUES (?, ?, ?, 'borrow', 'active', UTC_TIMESTAMP(), DATE_ADD(UTC_TIMESTAMP(), INTERVAL 14 DAY))`,
		newULID(t), bookID, memberID)
	require.NoError(t, err)

	err = svc.Delete(ctx, bookID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	// completing the transaction unblocks the delete
	_, err = conn.Exec(`UPDATE lending_transactions SET status = 'completed', returned_at = UTC_TIMESTAMP() WHERE book_id = ?`, bookID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, bookID))

	_, err = svc.Get(ctx, bookID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}
