package lends

import "time"

// ===== Requests =====

type CreateLendRequest struct {
	BookID int64 `json:"book_id" binding:"required"`
	// Optional for member-role callers, who may only borrow for themselves.
	MemberID int64  `json:"member_id,omitempty"`
	Kind     string `json:"kind" binding:"required"`
	// RFC3339 timestamp or "2006-01-02" date.
	DueAt string `json:"due_at" binding:"required"`
}

// ===== Responses =====

type LendResponse struct {
	LendID     int64      `json:"lend_id"`
	LendULID   string     `json:"lend_ulid"`
	BookID     int64      `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	MemberID   int64      `json:"member_id"`
	MemberName string     `json:"member_name"`
	Kind       Kind       `json:"kind"`
	Status     Status     `json:"status"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Overdue    bool       `json:"overdue"`
}

type ListLendsResponse struct {
	Items []LendResponse `json:"items"`
	Total int64          `json:"total"`
}

type StatsResponse struct {
	ActiveCount    int64 `json:"active_count"`
	OverdueCount   int64 `json:"overdue_count"`
	CompletedCount int64 `json:"completed_count"`
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
