package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus; Ready
// reports whether vectors can be produced without one.
type Embedder interface {
	Name() string
	Model() string
	Prepare(ctx context.Context, corpus []string) error
	Ready() bool
	Dimension() int
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
