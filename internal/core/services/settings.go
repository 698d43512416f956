package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySearchMode           = "search.mode"
	keySearchDefaultCount   = "search.default_match_count"
	keySearchMaxCount       = "search.max_match_count"
	keySearchChannelTimeout = "search.channel_timeout"

	keyBackendType = "backend.type"

	keyMongoURI         = "mongodb.uri"
	keyMongoDatabase    = "mongodb.database"
	keyMongoChunks      = "mongodb.chunks_collection"
	keyMongoDocuments   = "mongodb.documents_collection"
	keyMongoVectorIndex = "mongodb.vector_index"
	keyMongoTextIndex   = "mongodb.text_index"

	keySQLitePath = "sqlite.path"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxTokens   = "llm.max_tokens"

	keyCatalogBaseURL  = "catalog.base_url"
	keyCatalogUsername = "catalog.username"
	keyCatalogPassword = "catalog.password"
	keyCatalogTimeout  = "catalog.timeout"
	keyCatalogRPS      = "catalog.requests_per_second"

	keyLinkCacheBackend = "linkcache.backend"
	keyLinkCachePath    = "linkcache.path"
	keyRedisAddr        = "redis.addr"
	keyRedisPassword    = "redis.password"
	keyRedisDB          = "redis.db"
	keyRedisKey         = "redis.key"

	keyResponseProcessors = "response.processors"
	keyResponseMaxBuffer  = "response.max_think_buffer"
)

// valueKind is how Set parses a string value for a key.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindList
)

// settableKeys lists every key Set accepts.
var settableKeys = map[string]valueKind{
	keySearchMode:           kindString,
	keySearchDefaultCount:   kindInt,
	keySearchMaxCount:       kindInt,
	keySearchChannelTimeout: kindDuration,
	keyBackendType:          kindString,
	keyMongoURI:             kindString,
	keyMongoDatabase:        kindString,
	keyMongoChunks:          kindString,
	keyMongoDocuments:       kindString,
	keyMongoVectorIndex:     kindString,
	keyMongoTextIndex:       kindString,
	keySQLitePath:           kindString,
	keyEmbedProvider:        kindString,
	keyEmbedModel:           kindString,
	keyEmbedBaseURL:         kindString,
	keyEmbedAPIKey:          kindString,
	keyLLMProvider:          kindString,
	keyLLMModel:             kindString,
	keyLLMBaseURL:           kindString,
	keyLLMAPIKey:            kindString,
	keyLLMTemperature:       kindFloat,
	keyLLMMaxTokens:         kindInt,
	keyCatalogBaseURL:       kindString,
	keyCatalogUsername:      kindString,
	keyCatalogPassword:      kindString,
	keyCatalogTimeout:       kindDuration,
	keyCatalogRPS:           kindFloat,
	keyLinkCacheBackend:     kindString,
	keyLinkCachePath:        kindString,
	keyRedisAddr:            kindString,
	keyRedisPassword:        kindString,
	keyRedisDB:              kindInt,
	keyRedisKey:             kindString,
	keyResponseProcessors:   kindList,
	keyResponseMaxBuffer:    kindInt,
}

// SettableKeys returns the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// aiValidator is optional; without it the Validate*Config calls are no-ops.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings: defaults, then the config
// file, then environment overrides.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Search: domain.SearchSettings{
			Mode:              s.getSearchMode(d.Search.Mode),
			DefaultMatchCount: s.getInt(keySearchDefaultCount, d.Search.DefaultMatchCount),
			MaxMatchCount:     s.getInt(keySearchMaxCount, d.Search.MaxMatchCount),
			ChannelTimeout:    s.getDuration(keySearchChannelTimeout, d.Search.ChannelTimeout),
		},
		Backend: domain.BackendSettings{
			Type: s.getBackendType(d.Backend.Type),
			MongoDB: domain.MongoSettings{
				URI:                 s.configStore.GetString(keyMongoURI),
				Database:            s.getString(keyMongoDatabase, d.Backend.MongoDB.Database),
				ChunksCollection:    s.getString(keyMongoChunks, d.Backend.MongoDB.ChunksCollection),
				DocumentsCollection: s.getString(keyMongoDocuments, d.Backend.MongoDB.DocumentsCollection),
				VectorIndex:         s.getString(keyMongoVectorIndex, d.Backend.MongoDB.VectorIndex),
				TextIndex:           s.getString(keyMongoTextIndex, d.Backend.MongoDB.TextIndex),
			},
			SQLite: domain.SQLiteSettings{
				Path: s.configStore.GetString(keySQLitePath),
			},
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.configStore.GetString(keyEmbedModel),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:       s.configStore.GetString(keyLLMModel),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
		Catalog: domain.CatalogSettings{
			BaseURL:           s.configStore.GetString(keyCatalogBaseURL),
			Username:          s.configStore.GetString(keyCatalogUsername),
			Password:          s.configStore.GetString(keyCatalogPassword),
			Timeout:           s.getDuration(keyCatalogTimeout, d.Catalog.Timeout),
			RequestsPerSecond: s.getFloat(keyCatalogRPS, d.Catalog.RequestsPerSecond),
		},
		LinkCache: domain.LinkCacheSettings{
			Backend:       s.getLinkCacheBackend(d.LinkCache.Backend),
			Path:          s.configStore.GetString(keyLinkCachePath),
			RedisAddr:     s.configStore.GetString(keyRedisAddr),
			RedisPassword: s.configStore.GetString(keyRedisPassword),
			RedisDB:       s.configStore.GetInt(keyRedisDB),
			RedisKey:      s.getString(keyRedisKey, d.LinkCache.RedisKey),
		},
		Response: domain.ResponseSettings{
			Processors:     s.getStringSlice(keyResponseProcessors, d.Response.Processors),
			MaxThinkBuffer: s.getInt(keyResponseMaxBuffer, d.Response.MaxThinkBuffer),
		},
	}

	s.applyEnv(settings)
	s.applyModelDefaults(settings)

	return settings, nil
}

// applyEnv overlays environment variables, which win over the file.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	setString := func(dst *string, name string) {
		if v := s.getenv(name); v != "" {
			*dst = v
		}
	}

	setString(&settings.Backend.MongoDB.URI, "MONGODB_URI")
	setString(&settings.Backend.MongoDB.Database, "MONGODB_DATABASE")
	// A MongoDB URI in the environment selects the MongoDB backend unless
	// the file says otherwise.
	if s.getenv("MONGODB_URI") != "" && s.configStore.GetString(keyBackendType) == "" {
		settings.Backend.Type = domain.BackendMongoDB
	}

	if p := domain.AIProvider(s.getenv("LLM_PROVIDER")); p.IsValid() {
		settings.LLM.Provider = p
	}
	setString(&settings.LLM.APIKey, "LLM_API_KEY")
	setString(&settings.LLM.BaseURL, "LLM_BASE_URL")
	setString(&settings.LLM.Model, "LLM_MODEL")
	if settings.LLM.Provider == "" && s.getenv("LLM_API_KEY") != "" {
		settings.LLM.Provider = domain.AIProviderOpenAI
	}

	if p := domain.AIProvider(s.getenv("EMBEDDING_PROVIDER")); p.IsValid() {
		settings.Embedding.Provider = p
	}
	setString(&settings.Embedding.APIKey, "EMBEDDING_API_KEY")
	setString(&settings.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&settings.Embedding.Model, "EMBEDDING_MODEL")
	if settings.Embedding.Provider == "" && s.getenv("EMBEDDING_API_KEY") != "" {
		settings.Embedding.Provider = domain.AIProviderOpenAI
	}

	setString(&settings.Catalog.BaseURL, "KOMGA_BASE_URL")
	setString(&settings.Catalog.Username, "KOMGA_USERNAME")
	setString(&settings.Catalog.Password, "KOMGA_PASSWORD")

	if addr := s.getenv("REDIS_ADDR"); addr != "" {
		settings.LinkCache.RedisAddr = addr
		if s.configStore.GetString(keyLinkCacheBackend) == "" {
			settings.LinkCache.Backend = domain.LinkCacheRedis
		}
	}
}

// applyModelDefaults fills in the provider's default model.
func (s *SettingsService) applyModelDefaults(settings *domain.AppSettings) {
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
}

// Save persists application settings. Empty secrets are not written, so a
// key supplied through the environment never lands in the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
		skip  bool
	}{
		{keySearchMode, settings.Search.Mode.String(), false},
		{keySearchDefaultCount, settings.Search.DefaultMatchCount, false},
		{keySearchMaxCount, settings.Search.MaxMatchCount, false},
		{keySearchChannelTimeout, settings.Search.ChannelTimeout.String(), false},
		{keyBackendType, string(settings.Backend.Type), false},
		{keyMongoDatabase, settings.Backend.MongoDB.Database, false},
		{keyMongoChunks, settings.Backend.MongoDB.ChunksCollection, false},
		{keyMongoDocuments, settings.Backend.MongoDB.DocumentsCollection, false},
		{keyMongoVectorIndex, settings.Backend.MongoDB.VectorIndex, false},
		{keyMongoTextIndex, settings.Backend.MongoDB.TextIndex, false},
		{keySQLitePath, settings.Backend.SQLite.Path, settings.Backend.SQLite.Path == ""},
		{keyEmbedProvider, settings.Embedding.Provider.String(), false},
		{keyEmbedModel, settings.Embedding.Model, false},
		{keyEmbedBaseURL, settings.Embedding.BaseURL, false},
		{keyLLMProvider, settings.LLM.Provider.String(), false},
		{keyLLMModel, settings.LLM.Model, false},
		{keyLLMBaseURL, settings.LLM.BaseURL, false},
		{keyLLMTemperature, settings.LLM.Temperature, false},
		{keyLLMMaxTokens, settings.LLM.MaxTokens, false},
		{keyCatalogBaseURL, settings.Catalog.BaseURL, false},
		{keyCatalogUsername, settings.Catalog.Username, false},
		{keyCatalogTimeout, settings.Catalog.Timeout.String(), false},
		{keyCatalogRPS, settings.Catalog.RequestsPerSecond, false},
		{keyLinkCacheBackend, string(settings.LinkCache.Backend), false},
		{keyLinkCachePath, settings.LinkCache.Path, settings.LinkCache.Path == ""},
		{keyRedisAddr, settings.LinkCache.RedisAddr, false},
		{keyRedisDB, settings.LinkCache.RedisDB, false},
		{keyRedisKey, settings.LinkCache.RedisKey, false},
		{keyResponseProcessors, settings.Response.Processors, false},
		{keyResponseMaxBuffer, settings.Response.MaxThinkBuffer, false},
		{keyMongoURI, settings.Backend.MongoDB.URI, settings.Backend.MongoDB.URI == ""},
		{keyEmbedAPIKey, settings.Embedding.APIKey, settings.Embedding.APIKey == ""},
		{keyLLMAPIKey, settings.LLM.APIKey, settings.LLM.APIKey == ""},
		{keyCatalogPassword, settings.Catalog.Password, settings.Catalog.Password == ""},
		{keyRedisPassword, settings.LinkCache.RedisPassword, settings.LinkCache.RedisPassword == ""},
	}

	for _, v := range values {
		if v.skip {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set parses value for key and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	value = strings.TrimSpace(value)

	parsed, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w: %w", key, domain.ErrInvalidInput, err)
	}
	if err := checkEnum(key, value); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func parseValue(kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative")
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, fmt.Errorf("must not be negative")
		}
		return f, nil
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

// checkEnum rejects unknown values for keys with a fixed set of choices.
// An empty value clears the key.
func checkEnum(key, value string) error {
	if value == "" {
		return nil
	}
	var valid bool
	switch key {
	case keySearchMode:
		valid = domain.SearchMode(value).IsValid()
	case keyBackendType:
		valid = domain.BackendType(value).IsValid()
	case keyEmbedProvider, keyLLMProvider:
		valid = domain.AIProvider(value).IsValid()
	case keyLinkCacheBackend:
		valid = domain.LinkCacheBackend(value).IsValid()
	default:
		return nil
	}
	if !valid {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, domain.ErrInvalidInput)
	}
	return nil
}

// Validate checks that the settings can serve the configured search mode.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Search.Mode.IsValid() {
		return fmt.Errorf("invalid search mode: %s", settings.Search.Mode)
	}
	if settings.Search.DefaultMatchCount > settings.Search.MaxMatchCount {
		return fmt.Errorf("search.default_match_count (%d) exceeds search.max_match_count (%d)",
			settings.Search.DefaultMatchCount, settings.Search.MaxMatchCount)
	}

	if settings.Backend.Type == domain.BackendMongoDB && !settings.Backend.MongoDB.IsConfigured() {
		return fmt.Errorf("backend %q requires mongodb.uri (or MONGODB_URI) to be set", settings.Backend.Type)
	}

	// Hybrid search degrades to the text channel without embeddings;
	// semantic search has nothing to fall back to.
	if settings.Search.Mode == domain.SearchModeSemantic && !settings.Embedding.IsConfigured() {
		return fmt.Errorf(
			"search mode %q requires embedding provider to be configured",
			settings.Search.Mode.Description(),
		)
	}

	if settings.LinkCache.Backend == domain.LinkCacheRedis && settings.LinkCache.RedisAddr == "" {
		return fmt.Errorf("link cache backend %q requires redis.addr (or REDIS_ADDR)", settings.LinkCache.Backend)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// SettableKeys returns the keys accepted by Set.
func (s *SettingsService) SettableKeys() []string {
	return SettableKeys()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getSearchMode(defaultVal domain.SearchMode) domain.SearchMode {
	mode := domain.SearchMode(s.configStore.GetString(keySearchMode))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getBackendType(defaultVal domain.BackendType) domain.BackendType {
	backend := domain.BackendType(s.configStore.GetString(keyBackendType))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getLinkCacheBackend(defaultVal domain.LinkCacheBackend) domain.LinkCacheBackend {
	backend := domain.LinkCacheBackend(s.configStore.GetString(keyLinkCacheBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
