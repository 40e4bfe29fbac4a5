// Package retrieval answers customer questions from the store's documents:
// it ingests and indexes them, retrieves the closest chunks for a question,
// asks the language model under a constrained prompt and scores the result.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"retailbot/internal/domain"
	"retailbot/internal/embedding"
	"retailbot/internal/topics"
	"retailbot/internal/vectorstore"
)

var (
	// ErrNotReady is returned when the embedding handle was never initialised.
	ErrNotReady = errors.New("retrieval engine not ready")
	// ErrNoDocuments is returned when no source produced any text.
	ErrNoDocuments = errors.New("no documents could be processed")
)

// Fallback answers. AskQuestion never returns an error; failures surface as
// one of these.
const (
	UnavailableAnswer = "Lo siento, no puedo procesar tu consulta en este momento. Por favor contacta al servicio al cliente."
	ErrorAnswer       = "Lo siento, hubo un error procesando tu consulta. Por favor intenta de nuevo o contacta al servicio al cliente."
)

const (
	defaultTopK          = 4
	previewRunes         = 200
	summarySentences     = 2
	lexicalScoreEpsilon  = 1e-9
	contextChunkSeparate = "\n\n"
)

// DocumentSource yields the documents to index.
type DocumentSource interface {
	Documents(ctx context.Context) ([]domain.Document, error)
}

// Config tunes the engine.
type Config struct {
	TopK     int
	CacheDir string
}

// Engine is safe for concurrent use. Processing and reset are serialised;
// questions share the index.
type Engine struct {
	cfg        Config
	source     DocumentSource
	chunker    domain.Chunker
	embedder   embedding.Embedder
	store      vectorstore.Storage
	generator  domain.Generator
	summarizer domain.Summarizer
	logger     *zap.Logger

	mu        sync.RWMutex
	ready     bool
	fromCache bool
	chunks    []domain.Chunk
}

// Option customises an Engine.
type Option func(*Engine)

// WithSummarizer adds a per-document digest to processing reports.
func WithSummarizer(s domain.Summarizer) Option {
	return func(e *Engine) { e.summarizer = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New assembles an engine. embedder and generator may be nil when their
// providers could not be initialised; the engine then answers with
// UnavailableAnswer instead of failing.
func New(cfg Config, source DocumentSource, chunker domain.Chunker, embedder embedding.Embedder,
	store vectorstore.Storage, generator domain.Generator, opts ...Option) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	e := &Engine{
		cfg:       cfg,
		source:    source,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		generator: generator,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DocumentReport describes one processed source.
type DocumentReport struct {
	Name       string `json:"name"`
	Characters int    `json:"characters"`
	Chunks     int    `json:"chunks"`
	Summary    string `json:"summary,omitempty"`
}

// Report is the outcome of ProcessDocuments.
type Report struct {
	LoadedFromCache bool             `json:"loaded_from_cache"`
	Chunks          int              `json:"chunks"`
	Documents       []DocumentReport `json:"documents,omitempty"`
	Model           string           `json:"model,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Ready reports whether the index is loaded.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// ProcessDocuments makes the index available. Unless force is set, an index
// that is already loaded is kept and a valid on-disk cache is reused;
// otherwise every source is extracted, chunked, embedded and indexed again.
func (e *Engine) ProcessDocuments(ctx context.Context, force bool) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.embedder == nil || e.store == nil {
		return nil, ErrNotReady
	}
	if e.ready && !force {
		n, err := e.store.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count index: %w", err)
		}
		return &Report{LoadedFromCache: e.fromCache, Chunks: n, Model: e.embedder.Model()}, nil
	}
	if !force {
		if meta, ok := e.loadCache(ctx); ok {
			e.ready = true
			e.fromCache = true
			e.chunks = nil
			e.logger.Info("index loaded from cache",
				zap.Int("chunks", meta.NumDocuments),
				zap.String("model", meta.Model),
			)
			return &Report{LoadedFromCache: true, Chunks: meta.NumDocuments, Model: meta.Model, CreatedAt: meta.CreatedAt}, nil
		}
	}
	return e.process(ctx)
}

// process rebuilds the index. Callers hold e.mu.
func (e *Engine) process(ctx context.Context) (*Report, error) {
	docs, err := e.source.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	report := &Report{Model: e.embedder.Model(), CreatedAt: time.Now().UTC()}
	var all []domain.Chunk
	for _, d := range docs {
		dr := DocumentReport{Name: d.ID, Characters: len([]rune(d.Content))}
		if strings.TrimSpace(d.Content) == "" {
			report.Documents = append(report.Documents, dr)
			continue
		}
		chunks, err := e.chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.ID, err)
		}
		dr.Chunks = len(chunks)
		if e.summarizer != nil {
			if s, err := e.summarizer.Summarize(d.Content, summarySentences); err == nil {
				dr.Summary = s
			}
		}
		report.Documents = append(report.Documents, dr)
		all = append(all, chunks...)
		e.logger.Debug("document chunked", zap.String("document", d.ID), zap.Int("chunks", len(chunks)))
	}
	if len(all) == 0 {
		return nil, ErrNoDocuments
	}

	texts := make([]string, len(all))
	for i, ch := range all {
		texts[i] = ch.Text
	}
	if err := e.embedder.Prepare(ctx, texts); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	e.logger.Info("embedding chunks", zap.Int("chunks", len(all)), zap.String("embedder", e.embedder.Name()))
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(all) || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(all))
	}

	// invalidate first; a failure below leaves the engine not ready
	if err := e.removeCache(); err != nil {
		return nil, err
	}
	e.ready = false
	e.fromCache = false
	e.chunks = nil
	if err := e.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear index: %w", err)
	}
	if err := e.store.Init(ctx, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := e.store.Upsert(ctx, all, vectors); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	report.Chunks = len(all)
	if err := e.saveCache(cacheMetadata{
		NumDocuments: len(all),
		NumSources:   len(docs),
		Model:        e.embedder.Model(),
		CreatedAt:    report.CreatedAt,
	}); err != nil {
		e.logger.Error("saving cache metadata failed", zap.Error(err))
	}

	e.chunks = all
	e.ready = true
	e.fromCache = false
	e.logger.Info("documents processed", zap.Int("documents", len(docs)), zap.Int("chunks", len(all)))
	return report, nil
}

// Reset deletes the cached index and forgets in-memory state so the next
// question rebuilds from scratch.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ready = false
	e.fromCache = false
	e.chunks = nil
	var errs []error
	if e.store != nil {
		if err := e.store.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear index: %w", err))
		}
	}
	if err := e.removeCache(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	e.logger.Info("index cache reset")
	return nil
}

func (e *Engine) ensureReady(ctx context.Context) error {
	if e.Ready() {
		return nil
	}
	_, err := e.ProcessDocuments(ctx, false)
	return err
}

// AskQuestion answers question from the indexed documents. It returns the
// answer, the attributed source names (at most two) and metadata; it never
// fails, degrading to a fallback answer with a zero quality score.
func (e *Engine) AskQuestion(ctx context.Context, question string, uc *domain.UserContext) (answer string, sources []string, meta domain.AnswerMetadata) {
	start := time.Now()
	meta = domain.AnswerMetadata{
		Topic:           string(topics.DetectTopic(question)),
		CustomerContext: uc,
	}
	fail := func(text string) (string, []string, domain.AnswerMetadata) {
		meta.Fallback = true
		meta.QualityScore = 0
		meta.SourcesUsed = 0
		meta.RankedSources = nil
		meta.Duration = time.Since(start)
		return text, nil, meta
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic answering question", zap.Any("panic", r))
			answer, sources, meta = fail(ErrorAnswer)
		}
	}()

	if e.generator == nil {
		e.logger.Warn("no completion provider configured")
		return fail(UnavailableAnswer)
	}
	if err := e.ensureReady(ctx); err != nil {
		e.logger.Error("processing documents failed", zap.Error(err))
		return fail(UnavailableAnswer)
	}
	meta.Model = e.generator.Model()

	results, err := e.retrieve(ctx, question)
	if err != nil {
		e.logger.Error("retrieval failed", zap.Error(err))
		return fail(ErrorAnswer)
	}

	prompt, err := renderPrompt(results, question, uc)
	if err != nil {
		e.logger.Error("rendering prompt failed", zap.Error(err))
		return fail(ErrorAnswer)
	}
	out, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.Error("generation failed", zap.Error(err))
		return fail(ErrorAnswer)
	}
	answer = strings.TrimSpace(out)

	ranked := RankSources(question, results)
	sources = make([]string, 0, len(ranked))
	for _, s := range ranked {
		sources = append(sources, s.Name)
	}
	meta.RankedSources = ranked
	meta.SourcesUsed = len(sources)
	meta.QualityScore = QualityScore(question, answer, len(results))
	meta.Duration = time.Since(start)

	e.logger.Debug("question answered",
		zap.String("topic", meta.Topic),
		zap.Int("retrieved", len(results)),
		zap.Strings("sources", sources),
		zap.Float64("quality", meta.QualityScore),
		zap.Duration("took", meta.Duration),
	)
	return answer, sources, meta
}

// ContextAwareSuggestions returns up to two follow-up questions related to question.
func (e *Engine) ContextAwareSuggestions(question string) []string {
	return topics.Suggestions(question)
}

// retrieve returns the top-K chunks for question, falling back to lexical
// overlap when the vectors carry no signal.
func (e *Engine) retrieve(ctx context.Context, question string) ([]domain.SearchResult, error) {
	e.mu.RLock()
	chunks := e.chunks
	e.mu.RUnlock()

	vec, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if vectorstore.IsZero(vec) {
		return lexicalSearch(chunks, question, e.cfg.TopK), nil
	}
	res, err := e.store.Search(ctx, vec, e.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	for _, r := range res {
		if r.Score > lexicalScoreEpsilon {
			return res, nil
		}
	}
	if len(chunks) > 0 {
		return lexicalSearch(chunks, question, e.cfg.TopK), nil
	}
	return res, nil
}

// SimilarChunk is a short preview of an indexed chunk.
type SimilarChunk struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Index   int     `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// SimilarChunks returns previews of the k chunks closest to question.
func (e *Engine) SimilarChunks(ctx context.Context, question string, k int) ([]SimilarChunk, error) {
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 3
	}
	e.mu.RLock()
	chunks := e.chunks
	e.mu.RUnlock()

	vec, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	var res []domain.SearchResult
	if vectorstore.IsZero(vec) {
		res = lexicalSearch(chunks, question, k)
	} else if res, err = e.store.Search(ctx, vec, k); err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	out := make([]SimilarChunk, 0, len(res))
	for _, r := range res {
		out = append(out, SimilarChunk{
			Content: preview(r.Chunk.Text, previewRunes),
			Source:  r.Chunk.DocumentID,
			Index:   r.Chunk.Index,
			Score:   r.Score,
		})
	}
	return out, nil
}

func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
