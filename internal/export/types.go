// Package export renders a set of FAQ entries to PDF or DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Request contains parameters for an export operation. Entries must already
// be filtered to what the requesting caller may see; export does not apply
// policy itself.
type Request struct {
	Title   string
	Format  Format
	Entries []Entry
}

// Entry is one FAQ record prepared for rendering.
type Entry struct {
	Question  string
	Answer    string
	Category  string
	IsPinned  bool
	UpdatedBy string
	UpdatedAt time.Time
	Comments  []Comment
}

// Comment is a rendered discussion comment.
type Comment struct {
	Author    string
	Content   string
	CreatedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
