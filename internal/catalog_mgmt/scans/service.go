package scans

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"

	"library-backend/internal/catalog_mgmt/books"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/authz"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/vision"
)

const unknownAuthor = "Unknown"

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Analyzer is what the merger needs from the image analysis client.
type Analyzer interface {
	AnalyzeShelf(ctx context.Context, image []byte, mimeType string) ([]vision.Candidate, error)
}

// Service merges shelf-scan candidates into the catalog. Each candidate is
// applied in its own transaction, so a bad row never rolls back its batch.
type Service struct {
	conn     *sql.DB
	store    *Store
	books    *books.Store
	analyzer Analyzer
	id       IDGen
}

func NewService(conn *sql.DB, bookStore *books.Store, analyzer Analyzer) *Service {
	return &Service{
		conn:     conn,
		store:    NewStore(conn),
		books:    bookStore,
		analyzer: analyzer,
		id:       ulidGen{},
	}
}

// IngestImage sends the image for analysis, merges what came back and records
// the batch. Analysis failures are recorded as failed batches before the error
// is returned.
func (s *Service) IngestImage(ctx context.Context, caller authz.Caller, image []byte, mimeType string, imageRef, shelfLocation *string) (*MergeResponse, error) {
	candidates, err := s.analyzer.AnalyzeShelf(ctx, image, mimeType)
	if err != nil {
		if code := apperr.CodeOf(err); code == apperr.CodeExternal || code == apperr.CodeParse {
			s.recordBatch(ctx, caller.MemberID, imageRef, shelfLocation, nil, "failed")
		}
		return nil, err
	}

	res := s.merge(ctx, candidates, shelfLocation)
	res.ScanULID = s.recordBatch(ctx, caller.MemberID, imageRef, shelfLocation, candidates, "processed")
	return res, nil
}

// Merge applies already-extracted candidates, for callers that run analysis
// elsewhere or replay a stored batch.
func (s *Service) Merge(ctx context.Context, caller authz.Caller, req MergeRequest) (*MergeResponse, error) {
	if len(req.Candidates) == 0 {
		return nil, apperr.ErrInvalid("candidates must not be empty")
	}

	res := s.merge(ctx, req.Candidates, req.ShelfLocation)
	res.ScanULID = s.recordBatch(ctx, caller.MemberID, nil, req.ShelfLocation, req.Candidates, "processed")
	return res, nil
}

func (s *Service) List(ctx context.Context, p Page) (*ListScansResponse, error) {
	items, total, err := s.store.List(ctx, p)
	if err != nil {
		return nil, err
	}
	return &ListScansResponse{Items: items, Total: total}, nil
}

// merge applies candidates one by one. A title already in the catalog gains a
// copy on both counters; an unknown title becomes a new single-copy book with
// author "Unknown". Duplicate titles within a batch each count.
func (s *Service) merge(ctx context.Context, candidates []vision.Candidate, shelfOverride *string) *MergeResponse {
	res := &MergeResponse{Total: len(candidates), Results: make([]MergeRowResult, 0, len(candidates))}

	for i, cand := range candidates {
		row := MergeRowResult{Index: i, Title: cand.Title}

		title := normalizeTitle(cand.Title)
		if title == "" {
			row.Error = "empty title"
			res.NgCount++
			res.Results = append(res.Results, row)
			continue
		}

		err := db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
			existing, err := s.books.FindByTitleTx(ctx, tx, title)
			if err != nil {
				return err
			}
			if existing != nil {
				row.BookID = *existing
				return s.books.AddFoundCopyTx(ctx, tx, *existing)
			}

			shelf := shelfOverride
			if shelf == nil {
				label := shelfLabel(cand.Row, cand.Col)
				shelf = &label
			}
			one := 1
			id, err := s.books.InsertTx(ctx, tx, books.CreateBookRequest{
				Title:         title,
				Author:        unknownAuthor,
				ShelfLocation: shelf,
				TotalCopies:   &one,
			}, 1)
			if err != nil {
				return err
			}
			row.BookID = id
			row.Created = true
			return nil
		})
		if err != nil {
			row.Error = err.Error()
			res.NgCount++
		} else {
			row.Ok = true
			res.OkCount++
		}
		res.Results = append(res.Results, row)
	}
	return res
}

// recordBatch is best effort; the merge result stands even when the audit row
// cannot be written.
func (s *Service) recordBatch(ctx context.Context, memberID int64, imageRef, shelfLocation *string, candidates []vision.Candidate, status string) string {
	scanULID, err := s.id.New()
	if err != nil {
		return ""
	}
	if candidates == nil {
		candidates = []vision.Candidate{}
	}
	_, err = s.store.InsertBatch(ctx, batchRecord{
		ScanULID:      scanULID,
		ImageRef:      imageRef,
		Candidates:    candidates,
		ScannedBy:     memberID,
		ShelfLocation: shelfLocation,
		Status:        status,
	})
	if err != nil {
		return ""
	}
	return scanULID
}

// normalizeTitle puts detected titles into NFC and collapses stray whitespace
// so the same spine photographed twice resolves to one catalog row.
func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func shelfLabel(row, col int) string {
	return fmt.Sprintf("R%dC%d", row, col)
}
