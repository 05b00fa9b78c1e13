package scans

import (
	"time"

	"library-backend/internal/platform/vision"
)

// ===== Requests =====

type MergeRequest struct {
	Candidates []vision.Candidate `json:"candidates" binding:"required"`
	// Applied to every newly created book instead of the derived row/col label.
	ShelfLocation *string `json:"shelf_location,omitempty"`
}

// ===== Responses =====

type MergeRowResult struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Ok      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	BookID  int64  `json:"book_id,omitempty"`
	Created bool   `json:"created"`
}

type MergeResponse struct {
	ScanULID string           `json:"scan_ulid,omitempty"`
	Total    int              `json:"total"`
	OkCount  int              `json:"ok_count"`
	NgCount  int              `json:"ng_count"`
	Results  []MergeRowResult `json:"results"`
}

type ScanResponse struct {
	ScanID        int64     `json:"scan_id"`
	ScanULID      string    `json:"scan_ulid"`
	ImageRef      *string   `json:"image_ref,omitempty"`
	ScannedBy     int64     `json:"scanned_by"`
	ShelfLocation *string   `json:"shelf_location,omitempty"`
	Status        string    `json:"status"`
	ItemCount     int       `json:"item_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListScansResponse struct {
	Items []ScanResponse `json:"items"`
	Total int64          `json:"total"`
}

// ===== Listing helpers =====

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
