package scans

import (
	"context"
	"database/sql"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"library-backend/internal/platform/vision"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Store struct{ conn *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{conn: conn} }

type batchRecord struct {
	ScanULID      string
	ImageRef      *string
	Candidates    []vision.Candidate
	ScannedBy     int64
	ShelfLocation *string
	Status        string // "processed" or "failed"
}

func (s *Store) InsertBatch(ctx context.Context, b batchRecord) (int64, error) {
	items, err := json.Marshal(b.Candidates)
	if err != nil {
		return 0, err
	}

	const q = `
	INSERT INTO scan_batches (scan_ulid, image_ref, detected_items, scanned_by, shelf_location, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`

	res, err := s.conn.ExecContext(ctx, q,
		b.ScanULID, b.ImageRef, items, b.ScannedBy, b.ShelfLocation, b.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) List(ctx context.Context, p Page) ([]ScanResponse, int64, error) {
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
	SELECT scan_id, scan_ulid, image_ref, detected_items, scanned_by, shelf_location, status, created_at
	FROM scan_batches
	ORDER BY scan_id ` + order + `
	LIMIT ? OFFSET ?`

	rows, err := s.conn.QueryContext(ctx, selectSQL, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []ScanResponse{}
	for rows.Next() {
		var (
			r         ScanResponse
			imageRef  sql.NullString
			items     []byte
			shelf     sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&r.ScanID, &r.ScanULID, &imageRef, &items, &r.ScannedBy, &shelf, &r.Status, &createdAt); err != nil {
			return nil, 0, err
		}
		if imageRef.Valid {
			v := imageRef.String
			r.ImageRef = &v
		}
		if shelf.Valid {
			v := shelf.String
			r.ShelfLocation = &v
		}
		var cands []vision.Candidate
		if err := json.Unmarshal(items, &cands); err == nil {
			r.ItemCount = len(cands)
		}
		r.CreatedAt = createdAt
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_batches`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
