package scans

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/catalog_mgmt/books"
	"library-backend/internal/platform/authz"
	"library-backend/internal/platform/vision"
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

func seedLibrarian(t *testing.T, conn *sql.DB) authz.Caller {
	t.Helper()
	tag, err := ulidGen{}.New()
	require.NoError(t, err)
	res, err := conn.Exec(`
		INSERT INTO members (email, full_name, membership_number, role, is_active, created_at)
		VALUES (?, 'Scan Librarian', ?, 'librarian', 1, UTC_TIMESTAMP())`,
		tag+"@example.com", "LIB-"+tag)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return authz.Caller{MemberID: id, Role: authz.RoleLibrarian, Active: true}
}

func uniqueTitle(t *testing.T, base string) string {
	t.Helper()
	tag, err := ulidGen{}.New()
	require.NoError(t, err)
	return base + " " + tag
}

func bookByID(t *testing.T, conn *sql.DB, id int64) (title, author string, shelf sql.NullString, total, available int) {
	t.Helper()
	err := conn.QueryRow(`
		SELECT title, author, shelf_location, total_copies, available_copies
		FROM books WHERE book_id = ?`, id).Scan(&title, &author, &shelf, &total, &available)
	require.NoError(t, err)
	return
}

func Test_Merge_DuplicateCandidatesEachCount(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn, books.NewStore(conn), nil)
	caller := seedLibrarian(t, conn)
	title := uniqueTitle(t, "Dune")

	res, err := svc.Merge(context.Background(), caller, MergeRequest{
		Candidates: []vision.Candidate{
			{Title: title, Row: 1, Col: 1},
			{Title: title, Row: 1, Col: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.OkCount)
	assert.Equal(t, 0, res.NgCount)
	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[0].Created)
	assert.False(t, res.Results[1].Created)
	assert.Equal(t, res.Results[0].BookID, res.Results[1].BookID)

	_, author, shelf, total, available := bookByID(t, conn, res.Results[0].BookID)
	assert.Equal(t, "Unknown", author)
	require.True(t, shelf.Valid)
	assert.Equal(t, "R1C1", shelf.String)
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, available)
}

func Test_Merge_KnownTitleGainsCopy_CaseInsensitive(t *testing.T) {
	conn := openTestDB(t)
	bookStore := books.NewStore(conn)
	svc := NewService(conn, bookStore, nil)
	caller := seedLibrarian(t, conn)
	title := uniqueTitle(t, "The Dispossessed")

	res, err := conn.Exec(`
		INSERT INTO books (title, author, total_copies, available_copies, created_at)
		VALUES (?, 'Ursula K. Le Guin', 3, 1, UTC_TIMESTAMP())`, title)
	require.NoError(t, err)
	bookID, err := res.LastInsertId()
	require.NoError(t, err)

	merged, err := svc.Merge(context.Background(), caller, MergeRequest{
		Candidates: []vision.Candidate{{Title: "  " + strings.ToUpper(title) + "  ", Row: 2, Col: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, merged.OkCount)
	assert.Equal(t, bookID, merged.Results[0].BookID)
	assert.False(t, merged.Results[0].Created)

	_, author, _, total, available := bookByID(t, conn, bookID)
	assert.Equal(t, "Ursula K. Le Guin", author)
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, available)
}

func Test_Merge_ShelfOverrideAndBadRows(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn, books.NewStore(conn), nil)
	caller := seedLibrarian(t, conn)
	title := uniqueTitle(t, "Hyperion")
	override := "Annex B"

	res, err := svc.Merge(context.Background(), caller, MergeRequest{
		Candidates: []vision.Candidate{
			{Title: title, Row: 9, Col: 9},
			{Title: "   ", Row: 1, Col: 1},
		},
		ShelfLocation: &override,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.OkCount)
	assert.Equal(t, 1, res.NgCount)
	assert.Equal(t, "empty title", res.Results[1].Error)

	_, _, shelf, _, _ := bookByID(t, conn, res.Results[0].BookID)
	require.True(t, shelf.Valid)
	assert.Equal(t, "Annex B", shelf.String)
	assert.NotEmpty(t, res.ScanULID)

	var status string
	var scannedBy int64
	require.NoError(t, conn.QueryRow(
		`SELECT status, scanned_by FROM scan_batches WHERE scan_ulid = ?`, res.ScanULID).
		Scan(&status, &scannedBy))
	assert.Equal(t, "processed", status)
	assert.Equal(t, caller.MemberID, scannedBy)
}
