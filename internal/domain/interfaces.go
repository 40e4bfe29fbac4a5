package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned when no active user has the given identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when registering an identifier that is already taken.
	ErrUserExists = errors.New("user already registered")
	// ErrNoFieldsToUpdate is returned when an update carries no allow-listed field.
	ErrNoFieldsToUpdate = errors.New("no updatable fields")
)

// User is a registered customer identity.
type User struct {
	RowID        int64     `json:"-"`
	ID           string    `json:"identificacion"`
	FullName     string    `json:"nombre_completo"`
	Phone        string    `json:"telefono"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"fecha_registro"`
	Active       bool      `json:"activo"`
}

// Document is one source file converted to plain text.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a span of a document used for indexing, with its inferred metadata.
type Chunk struct {
	DocumentID  string
	ChunkID     string
	Text        string
	Index       int
	Total       int
	ContentType string
	Keywords    []string
	Specificity float64
}

// SearchResult represents a matching chunk with a similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// UserContext is the small per-question context the controller hands to the engine.
type UserContext struct {
	CustomerType string `json:"customer_type"`
	UserID       string `json:"user_id,omitempty"`
}

// SourceScore is a retrieved document with its heuristic relevance to the question.
type SourceScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// AnswerMetadata describes how an answer was produced.
type AnswerMetadata struct {
	QualityScore    float64       `json:"quality_score"`
	SourcesUsed     int           `json:"sources_used"`
	Topic           string        `json:"topic,omitempty"`
	RankedSources   []SourceScore `json:"ranked_sources,omitempty"`
	Model           string        `json:"model,omitempty"`
	Fallback        bool          `json:"fallback"`
	Duration        time.Duration `json:"duration"`
	CustomerContext *UserContext  `json:"customer_context,omitempty"`
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Generator produces a completion for a fully rendered prompt.
type Generator interface {
	Model() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
