package vectorstore

import (
	"context"
	"strconv"
	"strings"

	"retailbot/internal/domain"
)

// Storage persists vectors and supports similarity search.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Metadata keys shared by the backends that store chunk attributes as strings.
const (
	KeyDocumentID  = "document_id"
	KeyChunkID     = "chunk_id"
	KeyIndex       = "index"
	KeyTotal       = "total"
	KeyContentType = "content_type"
	KeyKeywords    = "keywords"
	KeySpecificity = "specificity"
	KeyText        = "text"
)

// Metadata flattens the attributes of a chunk, without its text.
func Metadata(c domain.Chunk) map[string]string {
	return map[string]string{
		KeyDocumentID:  c.DocumentID,
		KeyChunkID:     c.ChunkID,
		KeyIndex:       strconv.Itoa(c.Index),
		KeyTotal:       strconv.Itoa(c.Total),
		KeyContentType: c.ContentType,
		KeyKeywords:    strings.Join(c.Keywords, ","),
		KeySpecificity: strconv.FormatFloat(c.Specificity, 'f', -1, 64),
	}
}

// ChunkFromMetadata rebuilds a chunk from Metadata output and its text.
// Malformed numbers decode as zero.
func ChunkFromMetadata(m map[string]string, text string) domain.Chunk {
	c := domain.Chunk{
		DocumentID:  m[KeyDocumentID],
		ChunkID:     m[KeyChunkID],
		Text:        text,
		ContentType: m[KeyContentType],
	}
	c.Index, _ = strconv.Atoi(m[KeyIndex])
	c.Total, _ = strconv.Atoi(m[KeyTotal])
	c.Specificity, _ = strconv.ParseFloat(m[KeySpecificity], 64)
	if kw := m[KeyKeywords]; kw != "" {
		c.Keywords = strings.Split(kw, ",")
	}
	return c
}

// IsZero reports whether v has no non-zero component.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
