// Package extract converts the store's source documents (spreadsheet, PDF and
// Word files) into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"retailbot/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .xlsx, .pdf and .docx.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

var separator = strings.Repeat("=", 50)

// Source names one document and where it lives.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// File extracts the text of a single file, choosing the extractor by extension.
func File(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return XLSX(path)
	case ".pdf":
		return PDF(path)
	case ".docx":
		return DOCX(path)
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// All extracts every source in order. A source that is missing, unsupported
// or unreadable yields a document with empty content; the failure is logged.
func All(sources []Source, logger *zap.Logger) []domain.Document {
	if logger == nil {
		logger = zap.NewNop()
	}
	docs := make([]domain.Document, 0, len(sources))
	for _, src := range sources {
		text, err := File(src.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("document not found", zap.String("name", src.Name), zap.String("path", src.Path))
		case err != nil:
			logger.Error("document extraction failed", zap.String("name", src.Name), zap.Error(err))
		default:
			logger.Debug("document extracted", zap.String("name", src.Name), zap.Int("chars", len(text)))
		}
		docs = append(docs, domain.Document{ID: src.Name, Path: src.Path, Content: text})
	}
	return docs
}

// Files yields the documents of a fixed list of sources.
type Files struct {
	Sources []Source
	Logger  *zap.Logger
}

// Documents extracts every source. It fails only when the context is done;
// unreadable files come back empty.
func (f Files) Documents(ctx context.Context) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return All(f.Sources, f.Logger), nil
}
