package books

import "time"

// ===== Requests =====

type CreateBookRequest struct {
	Title         string  `json:"title" binding:"required"`
	Author        string  `json:"author" binding:"required"`
	ISBN          *string `json:"isbn,omitempty"`
	Category      *string `json:"category,omitempty"`
	ShelfLocation *string `json:"shelf_location,omitempty"`
	Description   *string `json:"description,omitempty"`
	// Defaults to 1 when omitted; 0 is allowed for titles known but not stocked.
	TotalCopies *int `json:"total_copies,omitempty"`
}

type UpdateBookRequest struct {
	Title         *string `json:"title,omitempty"`
	Author        *string `json:"author,omitempty"`
	ISBN          *string `json:"isbn,omitempty"`
	Category      *string `json:"category,omitempty"`
	ShelfLocation *string `json:"shelf_location,omitempty"`
	Description   *string `json:"description,omitempty"`
	// Changing the total moves available_copies by the same delta so the
	// number of copies out on loan is preserved.
	TotalCopies *int `json:"total_copies,omitempty"`
}

type AdjustAvailabilityRequest struct {
	// Positive for copies coming back into stock, negative for copies leaving.
	Delta int `json:"delta" binding:"required"`
}

// ===== Responses =====

type BookResponse struct {
	BookID          int64     `json:"book_id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            *string   `json:"isbn,omitempty"`
	Category        *string   `json:"category,omitempty"`
	ShelfLocation   *string   `json:"shelf_location,omitempty"`
	Description     *string   `json:"description,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	// Populated on detail fetches only.
	ActiveLends *int64 `json:"active_lends,omitempty"`
}

type ListBooksResponse struct {
	Items []BookResponse `json:"items"`
	Total int64          `json:"total"`
}

// ===== Listing helpers =====

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}

type BookSearchQuery struct {
	Title         *string // substring match
	Author        *string
	Category      *string
	AvailableOnly bool
}
