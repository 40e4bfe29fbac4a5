// Package app assembles the bot's components from configuration.
package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"retailbot/internal/chunker"
	"retailbot/internal/config"
	"retailbot/internal/conversation"
	"retailbot/internal/domain"
	"retailbot/internal/embedding"
	embopenai "retailbot/internal/embedding/openai"
	"retailbot/internal/embedding/tfidf"
	"retailbot/internal/extract"
	llmopenai "retailbot/internal/llm/openai"
	"retailbot/internal/retrieval"
	"retailbot/internal/summarizer"
	"retailbot/internal/userstore"
	"retailbot/internal/vectorstore"
	"retailbot/internal/vectorstore/chromem"
	"retailbot/internal/vectorstore/memory"
	"retailbot/internal/vectorstore/qdrant"
)

// App holds the assembled components.
type App struct {
	Config     *config.AppConfig
	Logger     *zap.Logger
	Users      *userstore.Store
	Engine     *retrieval.Engine
	Controller *conversation.Controller
}

// New opens the customer database and builds the retrieval engine and the
// conversation controller. A missing provider key is not fatal: the engine
// then answers with its fallback text.
func New(cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	users, err := userstore.Open(cfg.Database.Path, logger.Named("userstore"))
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(cfg, logger)
	if err != nil {
		_ = users.Close()
		return nil, err
	}
	controller := conversation.NewController(users, engine,
		conversation.WithInteractionLog(users),
		conversation.WithDebugFooter(cfg.Bot.Debug),
		conversation.WithSuggestionThreshold(cfg.Retrieval.SuggestionThreshold),
		conversation.WithLogger(logger.Named("conversation")),
	)
	return &App{Config: cfg, Logger: logger, Users: users, Engine: engine, Controller: controller}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Users.Close()
}

// NewEngine builds the retrieval engine alone, for commands that do not
// touch the customer database.
func NewEngine(cfg *config.AppConfig, logger *zap.Logger) (*retrieval.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	store, err := newVectorStore(cfg, logger.Named("vectorstore"))
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Provider.TimeoutSecs) * time.Second
	emb, err := newEmbedder(cfg, timeout)
	if err != nil {
		logger.Warn("embedder unavailable", zap.Error(err))
		emb = nil
	}
	var gen domain.Generator
	g, err := llmopenai.New(llmopenai.Config{
		BaseURL:     cfg.Provider.BaseURL,
		APIKeyEnv:   cfg.Provider.APIKeyEnv,
		Model:       cfg.Provider.ChatModel,
		Temperature: cfg.Provider.Temperature,
		MaxTokens:   cfg.Provider.MaxTokens,
		Timeout:     timeout,
	})
	if err != nil {
		logger.Warn("completion provider unavailable", zap.Error(err))
	} else {
		gen = g
	}

	source := extract.Files{Sources: cfg.Documents, Logger: logger.Named("extract")}
	return retrieval.New(
		retrieval.Config{TopK: cfg.Retrieval.TopK, CacheDir: cfg.Retrieval.CacheDir},
		source, ch, emb, store, gen,
		retrieval.WithSummarizer(summarizer.NewFrequencySummarizer()),
		retrieval.WithLogger(logger.Named("retrieval")),
	), nil
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "characters", "":
		return chunker.NewCharacterChunker(cfg.ChunkSize, cfg.Overlap), nil
	case "sentences":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	}
	return nil, fmt.Errorf("%w: unknown chunker %q", config.ErrInvalidConfig, cfg.Type)
}

func newEmbedder(cfg *config.AppConfig, timeout time.Duration) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "openai", "":
		c, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.Provider.BaseURL,
			APIKeyEnv: cfg.Provider.APIKeyEnv,
			Model:     cfg.Provider.EmbeddingModel,
			Timeout:   timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	}
	return nil, fmt.Errorf("%w: unknown embedder %q", config.ErrInvalidConfig, cfg.Embedder.Type)
}

func newVectorStore(cfg *config.AppConfig, logger *zap.Logger) (vectorstore.Storage, error) {
	vs := cfg.VectorStore
	switch vs.Type {
	case "chromem", "":
		return chromem.NewStorage(chromem.Config{
			Path:       filepath.Join(cfg.Retrieval.CacheDir, "vectorstore"),
			Collection: vs.Collection,
			Compress:   vs.Compress,
		}, logger)
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		if vs.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        vs.Qdrant.URL,
			APIKey:     vs.Qdrant.APIKey,
			Collection: vs.Qdrant.Collection,
			Timeout:    time.Duration(vs.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	}
	return nil, fmt.Errorf("%w: unknown vector store %q", config.ErrInvalidConfig, vs.Type)
}
