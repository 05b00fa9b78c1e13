package members

import "time"

// ===== Requests =====

type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ===== Responses =====

type MemberResponse struct {
	MemberID         int64     `json:"member_id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	MembershipNumber string    `json:"membership_number"`
	Role             string    `json:"role"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

type ListMembersResponse struct {
	Items []MemberResponse `json:"items"`
	Total int64            `json:"total"`
}

// ===== Listing helpers =====

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}

type MemberSearchQuery struct {
	Role       *string
	ActiveOnly bool
	// Substring match over email, full name and membership number.
	Search *string
}
