package model

import (
	"strings"
	"time"
)

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type Category string

const (
	CategoryFiction    Category = "Fiction"
	CategoryNonFiction Category = "Non-Fiction"
	CategorySciFi      Category = "Sci-Fi"
	CategoryBiography  Category = "Biography"
	CategoryHistory    Category = "History"
	CategorySelfHelp   Category = "Self-Help"
	CategoryPsychology Category = "Psychology"
)

type BookStatus string

const (
	BookAvailable  BookStatus = "Available"
	BookCheckedOut BookStatus = "CheckedOut"
	BookReserved   BookStatus = "Reserved"
	BookLost       BookStatus = "Lost"
)

// Pinned reports whether the status is a manual override that availability changes must not touch.
func (s BookStatus) Pinned() bool {
	return s == BookReserved || s == BookLost
}

type Book struct {
	ISBN            string     `json:"isbn" db:"isbn"`
	Title           string     `json:"title" db:"title"`
	Author          string     `json:"author" db:"author"`
	Category        Category   `json:"category" db:"category"`
	TotalCopies     int        `json:"totalCopies" db:"total_copies"`
	AvailableCopies int        `json:"availableCopies" db:"available_copies"`
	Status          BookStatus `json:"status" db:"status"`
	CoverURL        string     `json:"coverUrl" db:"cover_url"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// DeriveStatus recomputes the status from availability unless it is pinned.
func (b *Book) DeriveStatus() {
	if b.Status.Pinned() {
		return
	}
	if b.AvailableCopies > 0 {
		b.Status = BookAvailable
	} else {
		b.Status = BookCheckedOut
	}
}

// OnLoan is the number of copies held by standing loans.
func (b Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

type CreateBookRequest struct {
	ISBN        string     `json:"isbn" validate:"required,max=32"`
	Title       string     `json:"title" validate:"max=512"`
	Author      string     `json:"author" validate:"max=256"`
	Category    Category   `json:"category" validate:"omitempty,oneof=Fiction Non-Fiction Sci-Fi Biography History Self-Help Psychology"`
	TotalCopies *int       `json:"totalCopies" validate:"omitempty,min=0"`
	Status      BookStatus `json:"status" validate:"omitempty,oneof=Available CheckedOut Reserved Lost"`
	CoverURL    string     `json:"coverUrl" validate:"omitempty,url"`
}

type BookPatch struct {
	Title       *string     `json:"title" validate:"omitempty,max=512"`
	Author      *string     `json:"author" validate:"omitempty,max=256"`
	Category    *Category   `json:"category" validate:"omitempty,oneof=Fiction Non-Fiction Sci-Fi Biography History Self-Help Psychology"`
	TotalCopies *int        `json:"totalCopies" validate:"omitempty,min=0"`
	Status      *BookStatus `json:"status" validate:"omitempty,oneof=Available CheckedOut Reserved Lost"`
	CoverURL    *string     `json:"coverUrl" validate:"omitempty,max=2048"`
}

// Apply writes the patch onto b. Availability follows the total so that the on-loan count is kept.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.CoverURL != nil {
		b.CoverURL = *p.CoverURL
	}
	if p.TotalCopies != nil {
		b.AvailableCopies += *p.TotalCopies - b.TotalCopies
		b.TotalCopies = *p.TotalCopies
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	b.DeriveStatus()
}

// BookMetadata is what an external lookup may contribute to an existing record.
type BookMetadata struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"coverUrl"`
}

func (m BookMetadata) Empty() bool {
	return m.Title == "" && m.Author == "" && m.CoverURL == ""
}

// Fill copies metadata into the empty fields of b and reports whether anything changed.
func (m BookMetadata) Fill(b *Book) bool {
	changed := false
	if b.Title == "" && m.Title != "" {
		b.Title, changed = m.Title, true
	}
	if b.Author == "" && m.Author != "" {
		b.Author, changed = m.Author, true
	}
	if b.CoverURL == "" && m.CoverURL != "" {
		b.CoverURL, changed = m.CoverURL, true
	}
	return changed
}

type BookFilter struct {
	Category  Category
	Search    string
	Available bool
	Page      int
	Size      int
}

// Match implements the filter for in-process stores; SQL stores translate it to WHERE clauses.
func (f BookFilter) Match(b Book) bool {
	if f.Category != "" && b.Category != f.Category {
		return false
	}
	if f.Available && b.AvailableCopies <= 0 {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) &&
			!strings.Contains(b.ISBN, f.Search) {
			return false
		}
	}
	return true
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}
