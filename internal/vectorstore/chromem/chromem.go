// Package chromem stores chunk vectors in an embedded chromem-go database
// persisted to a directory, which doubles as the on-disk index cache.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"retailbot/internal/domain"
	"retailbot/internal/vectorstore"
)

// Config selects where the database lives.
type Config struct {
	Path       string
	Collection string
	Compress   bool
}

// Storage implements vectorstore.Storage on a persistent chromem-go DB.
// Embeddings are always supplied by the caller, so the collection's own
// embedding function is never invoked.
type Storage struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	logger     *zap.Logger
}

// NewStorage opens (or creates) the database directory.
func NewStorage(cfg Config, logger *zap.Logger) (*Storage, error) {
	if cfg.Path == "" {
		return nil, errors.New("chromem path required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "retail_documents"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db %s: %w", cfg.Path, err)
	}
	return &Storage{
		db:         db,
		collection: db.GetCollection(cfg.Collection, nil),
		name:       cfg.Collection,
		logger:     logger,
	}, nil
}

func (s *Storage) Init(_ context.Context, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.db.GetOrCreateCollection(s.name, map[string]string{"source": "retailbot"}, nil)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.name, err)
	}
	s.collection = c
	return nil
}

// Upsert adds the chunks. All-zero vectors cannot be normalised and can never
// match a query, so they are skipped.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.RLock()
	c := s.collection
	s.mu.RUnlock()
	if c == nil {
		return errors.New("collection not initialized")
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for i, ch := range chunks {
		if vectorstore.IsZero(vectors[i]) {
			s.logger.Debug("skipping zero vector", zap.String("chunk", ch.ChunkID))
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        ch.ChunkID,
			Content:   ch.Text,
			Embedding: vectors[i],
			Metadata:  vectorstore.Metadata(ch),
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	c := s.collection
	s.mu.RUnlock()
	if c == nil || vectorstore.IsZero(vector) {
		return nil, nil
	}
	if topK <= 0 {
		topK = 4
	}
	if n := c.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}
	docs, err := c.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, domain.SearchResult{
			Chunk: vectorstore.ChunkFromMetadata(d.Metadata, d.Content),
			Score: float64(d.Similarity),
		})
	}
	return results, nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return 0, nil
	}
	return s.collection.Count(), nil
}

// Clear deletes the collection and its files.
func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.name, err)
	}
	s.collection = nil
	return nil
}
