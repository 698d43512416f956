package domain

import "time"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is any OpenAI-compatible API (OpenAI, OpenRouter, vLLM).
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible (cloud)"
	default:
		return unknownDescription
	}
}

// BackendType selects the document store serving both retrieval channels.
type BackendType string

// Available backends.
const (
	// BackendMongoDB uses Atlas $vectorSearch and $search.
	BackendMongoDB BackendType = "mongodb"

	// BackendSQLite uses a local database with FTS5 and exact vector scan.
	BackendSQLite BackendType = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b BackendType) IsValid() bool {
	return b == BackendMongoDB || b == BackendSQLite
}

// LinkCacheBackend selects where resolved book IDs are persisted.
type LinkCacheBackend string

// Available link cache backends.
const (
	LinkCacheFile  LinkCacheBackend = "file"
	LinkCacheRedis LinkCacheBackend = "redis"
)

// IsValid returns true if the link cache backend is recognised.
func (b LinkCacheBackend) IsValid() bool {
	return b == LinkCacheFile || b == LinkCacheRedis
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// Mode is the default retrieval mode.
	Mode SearchMode

	// DefaultMatchCount is used when a request does not set a count.
	DefaultMatchCount int

	// MaxMatchCount caps any requested count.
	MaxMatchCount int

	// ChannelTimeout bounds each retrieval channel call.
	ChannelTimeout time.Duration
}

// BackendSettings selects and configures the retrieval backend.
type BackendSettings struct {
	Type    BackendType
	MongoDB MongoSettings
	SQLite  SQLiteSettings
}

// MongoSettings configures the MongoDB backend.
type MongoSettings struct {
	URI                 string
	Database            string
	ChunksCollection    string
	DocumentsCollection string
	VectorIndex         string
	TextIndex           string
}

// IsConfigured returns true if a connection URI is set.
func (m MongoSettings) IsConfigured() bool {
	return m.URI != "" && m.Database != ""
}

// SQLiteSettings configures the local backend.
type SQLiteSettings struct {
	// Path is the database file. Empty means <config dir>/data/knowledge.db.
	Path string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI-compatible providers).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI-compatible providers).
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the response length. Zero leaves it to the provider.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// CatalogSettings configures the document-reader catalog used for deep links.
type CatalogSettings struct {
	BaseURL           string
	Username          string
	Password          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// IsConfigured returns true if the catalog can be queried.
func (c CatalogSettings) IsConfigured() bool {
	return c.BaseURL != "" && c.Username != "" && c.Password != ""
}

// LinkCacheSettings configures persistence of resolved book IDs.
type LinkCacheSettings struct {
	Backend LinkCacheBackend

	// Path is the JSON file for the file backend.
	// Empty means <config dir>/book_links.json.
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// ResponseSettings configures answer post-processing.
type ResponseSettings struct {
	// Processors is the ordered list of response processors.
	Processors []string

	// MaxThinkBuffer caps how much leading output is held while waiting
	// for the end of a reasoning block.
	MaxThinkBuffer int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Search    SearchSettings
	Backend   BackendSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Catalog   CatalogSettings
	LinkCache LinkCacheSettings
	Response  ResponseSettings
}

// Defaults shared by settings and services.
const (
	DefaultMatchCount     = 10
	DefaultMaxMatchCount  = 50
	DefaultChannelTimeout = 10 * time.Second
	DefaultCatalogTimeout = 10 * time.Second
	DefaultCatalogRPS     = 5.0
	DefaultMaxThinkBuffer = 64 * 1024
	DefaultRedisLinkKey   = "sercha-rag:book-links"
)

// DefaultResponseProcessors returns the processors run on every answer.
func DefaultResponseProcessors() []string {
	return []string{"think", "tool_artifacts", "citations"}
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; the local SQLite backend is used
// until MongoDB is set up.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Search: SearchSettings{
			Mode:              SearchModeHybrid,
			DefaultMatchCount: DefaultMatchCount,
			MaxMatchCount:     DefaultMaxMatchCount,
			ChannelTimeout:    DefaultChannelTimeout,
		},
		Backend: BackendSettings{
			Type: BackendSQLite,
			MongoDB: MongoSettings{
				Database:            "knowledge_base",
				ChunksCollection:    "chunks",
				DocumentsCollection: "documents",
				VectorIndex:         "vector_index",
				TextIndex:           "text_index",
			},
		},
		Embedding: EmbeddingSettings{},
		LLM: LLMSettings{
			Temperature: 0.2,
		},
		Catalog: CatalogSettings{
			Timeout:           DefaultCatalogTimeout,
			RequestsPerSecond: DefaultCatalogRPS,
		},
		LinkCache: LinkCacheSettings{
			Backend:  LinkCacheFile,
			RedisKey: DefaultRedisLinkKey,
		},
		Response: ResponseSettings{
			Processors:     DefaultResponseProcessors(),
			MaxThinkBuffer: DefaultMaxThinkBuffer,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}
