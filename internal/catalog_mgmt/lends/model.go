package lends

import (
	"database/sql"
	"time"
)

type Kind string

const (
	KindBorrow  Kind = "borrow"
	KindReserve Kind = "reserve"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindBorrow, KindReserve:
		return Kind(s), true
	}
	return "", false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Lend is one row of lending_transactions. The only mutation a row ever sees
// is the active -> completed transition stamped by a return.
type Lend struct {
	LendID     int64
	LendULID   string
	BookID     int64
	MemberID   int64
	Kind       Kind
	Status     Status
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt sql.NullTime
}

// IsOverdue is the overdue predicate: active and past due at the evaluation
// time. Completed transactions are never overdue regardless of due date.
func (l Lend) IsOverdue(now time.Time) bool {
	return l.Status == StatusActive && l.DueAt.Before(now)
}

type LendFilter struct {
	MemberID    *int64
	BookID      *int64
	Status      *Status
	Kind        *Kind
	OverdueOnly bool
}
