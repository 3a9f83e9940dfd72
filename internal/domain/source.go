package domain

import (
	"context"
	"time"
)

// SourceKind identifies how a source's text was obtained.
type SourceKind string

const (
	SourceText SourceKind = "text"
	SourcePDF  SourceKind = "pdf"
)

// SourceSeparator joins the content of several sources into one document.
const SourceSeparator = "\n\n---\n\n"

// Source is an uploaded document whose extracted text can feed a generation run.
type Source struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Kind      SourceKind `json:"kind"`
	Content   string     `json:"content"`
	WordCount int        `json:"word_count"`
	CreatedAt time.Time  `json:"created_at"`
}

// SourceStore keeps sources. Entries are only added or removed, never edited in place.
type SourceStore interface {
	Save(ctx context.Context, source *Source) error
	Get(ctx context.Context, id string) (*Source, error)
	List(ctx context.Context) ([]*Source, error)
	Delete(ctx context.Context, id string) error
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, kind SourceKind, data []byte) (string, error)
}
