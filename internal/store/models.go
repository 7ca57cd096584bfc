package store

import "time"

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type FAQ struct {
	ID         string
	Question   string
	Answer     string
	Category   string
	IsPinned   bool
	Visibility string
	CreatedBy  string
	UpdatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Comments   []Comment
}

// Comment is embedded in its parent FAQ: append-only, never edited or
// deleted on its own, removed only when the parent entry is deleted.
type Comment struct {
	ID        string
	FAQID     string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// FAQUpdate carries a partial update. Nil fields are left unchanged.
type FAQUpdate struct {
	Question   *string
	Answer     *string
	Category   *string
	IsPinned   *bool
	Visibility *string
}

// FAQFilter narrows a listing. Query matches question or answer by
// case-insensitive substring; Category matches exactly. IncludeInternal
// is the visibility filter derived from the caller's identity.
type FAQFilter struct {
	Query           string
	Category        string
	IncludeInternal bool
}
