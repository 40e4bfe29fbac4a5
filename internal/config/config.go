package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"retailbot/internal/extract"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// ProviderConfig holds the OpenAI-compatible endpoint used for embeddings and completions.
type ProviderConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
}

// EmbedderConfig selects the text embedder implementation.
type EmbedderConfig struct {
	Type string `yaml:"type"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string        `yaml:"type"`
	Collection string        `yaml:"collection"`
	Compress   bool          `yaml:"compress"`
	Qdrant     *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig tunes question answering.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	CacheDir            string  `yaml:"cache_dir"`
	SuggestionThreshold float64 `yaml:"suggestion_threshold"`
}

// DatabaseConfig locates the customer database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP chat backend.
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	SessionTTLMinutes int      `yaml:"session_ttl_minutes"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	// AdminToken enables the stats and admin routes; empty disables them.
	AdminToken        string   `yaml:"admin_token,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Production bool   `yaml:"production"`
}

// BotConfig holds presentation settings.
type BotConfig struct {
	Name  string `yaml:"name"`
	Debug bool   `yaml:"debug"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Provider    ProviderConfig    `yaml:"provider"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Documents   []extract.Source  `yaml:"documents"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Bot         BotConfig         `yaml:"bot"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// A .env file in the working directory is loaded first; environment
// overrides are applied last.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/retailbot/config.yaml.
// If neither exists, it writes defaults to ~/.config/retailbot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "retailbot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "openai"},
		Chunker:     ChunkerConfig{Type: "characters"},
		VectorStore: VectorStoreConfig{Type: "chromem"},
		Documents: []extract.Source{
			{Name: "horarios", Path: "data/Horarios.xlsx"},
			{Name: "suma_gana", Path: "data/Suma_Gana.pdf"},
			{Name: "preguntas_frecuentes", Path: "data/Preguntas_Frecuentes.docx"},
		},
		Log: LogConfig{Level: "info", File: "logs/retailbot.log"},
		Bot: BotConfig{Name: "Asistente Virtual SuperMercado"},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field.
func (cfg *AppConfig) ApplyDefaults() {
	p := &cfg.Provider
	if p.BaseURL == "" {
		p.BaseURL = "https://api.openai.com/v1"
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = "OPENAI_API_KEY"
	}
	if p.ChatModel == "" {
		p.ChatModel = "gpt-3.5-turbo"
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = "text-embedding-3-small"
	}
	if p.Temperature == 0 {
		p.Temperature = 0.7
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = 1000
	}
	if p.TimeoutSecs == 0 {
		p.TimeoutSecs = 30
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "characters"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 200
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "chromem"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "retail_documents"
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Collection == "" {
			q.Collection = cfg.VectorStore.Collection
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 30
		}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.CacheDir == "" {
		cfg.Retrieval.CacheDir = "cache"
	}
	if cfg.Retrieval.SuggestionThreshold == 0 {
		cfg.Retrieval.SuggestionThreshold = 0.6
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/users.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.SessionTTLMinutes == 0 {
		cfg.Server.SessionTTLMinutes = 60
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// applyEnv lets CHAT_MODEL, EMBEDDINGS_MODEL and RETAILBOT_ADMIN_TOKEN
// override the file.
func (cfg *AppConfig) applyEnv() {
	if v := os.Getenv("RETAILBOT_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("CHAT_MODEL"); v != "" {
		cfg.Provider.ChatModel = v
	}
	if v := os.Getenv("EMBEDDINGS_MODEL"); v != "" {
		cfg.Provider.EmbeddingModel = v
	}
}

// Validate rejects unknown component types and out-of-range values.
func (cfg *AppConfig) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}
	check(oneOf(cfg.Embedder.Type, "openai", "tfidf"), "unknown embedder %q", cfg.Embedder.Type)
	check(oneOf(cfg.Chunker.Type, "characters", "sentences"), "unknown chunker %q", cfg.Chunker.Type)
	check(oneOf(cfg.VectorStore.Type, "chromem", "memory", "qdrant"), "unknown vector store %q", cfg.VectorStore.Type)
	check(cfg.VectorStore.Type != "qdrant" || (cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.URL != ""),
		"qdrant vector store needs qdrant.url")
	check(cfg.Chunker.Overlap >= 0 && cfg.Chunker.Overlap < cfg.Chunker.ChunkSize,
		"chunk overlap %d must be below chunk size %d", cfg.Chunker.Overlap, cfg.Chunker.ChunkSize)
	check(cfg.Retrieval.TopK > 0, "top_k must be positive")
	check(cfg.Retrieval.SuggestionThreshold > 0 && cfg.Retrieval.SuggestionThreshold <= 1,
		"suggestion_threshold %.2f must be in (0, 1]", cfg.Retrieval.SuggestionThreshold)
	check(len(cfg.Documents) > 0, "at least one document is required")
	for i, d := range cfg.Documents {
		check(d.Name != "" && d.Path != "", "document %d needs a name and a path", i)
	}
	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
