package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const metadataFile = "metadata.json"

// cacheMetadata is the sidecar written next to the persisted index.
type cacheMetadata struct {
	NumDocuments int       `json:"num_documents"`
	NumSources   int       `json:"num_sources"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
}

func (e *Engine) metadataPath() string {
	return filepath.Join(e.cfg.CacheDir, metadataFile)
}

// loadCache reports whether the persisted index can be reused: the sidecar
// must exist and name the current embedding model, the embedder must be
// usable without a corpus pass and the index must hold exactly the
// vectors the sidecar recorded.
func (e *Engine) loadCache(ctx context.Context) (cacheMetadata, bool) {
	var meta cacheMetadata
	if e.cfg.CacheDir == "" || !e.embedder.Ready() {
		return meta, false
	}
	raw, err := os.ReadFile(e.metadataPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("reading cache metadata failed", zap.Error(err))
		}
		return meta, false
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		e.logger.Warn("cache metadata is corrupt", zap.Error(err))
		return meta, false
	}
	if meta.Model != e.embedder.Model() {
		e.logger.Info("cache built with another embedding model, rebuilding",
			zap.String("cached", meta.Model), zap.String("current", e.embedder.Model()))
		return meta, false
	}
	n, err := e.store.Count(ctx)
	if err != nil || n == 0 {
		return meta, false
	}
	if n != meta.NumDocuments {
		e.logger.Warn("cached index is incomplete, rebuilding",
			zap.Int("expected", meta.NumDocuments), zap.Int("found", n))
		return meta, false
	}
	return meta, true
}

func (e *Engine) saveCache(meta cacheMetadata) error {
	if e.cfg.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(e.cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(e.metadataPath(), raw, 0o644)
}

func (e *Engine) removeCache() error {
	if e.cfg.CacheDir == "" {
		return nil
	}
	if err := os.Remove(e.metadataPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache metadata: %w", err)
	}
	return nil
}
