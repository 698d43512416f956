package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// secretKeys are prompted for without echo and masked when shown.
var secretKeys = []string{
	"embedding.api_key",
	"llm.api_key",
	"catalog.password",
	"redis.password",
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the retrieval backend, AI providers, the Komga
catalog and response processing.

Environment variables (MONGODB_URI, LLM_*, EMBEDDING_*, KOMGA_*, REDIS_ADDR)
override stored values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY [VALUE]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key. Secrets are prompted for
without echo when VALUE is omitted. An empty VALUE clears the key.

Lists (response.processors) are comma separated. Durations use Go syntax,
for example 10s or 1500ms.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys accepted by settings set",
	RunE:  runSettingsKeys,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and ping the AI providers",
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	w := cmd.OutOrStdout()
	section := func(name string) {
		cmd.Println(style(w, headingStyle, "["+name+"]"))
	}

	section("Search")
	cmd.Printf("  Mode: %s\n", settings.Search.Mode.Description())
	cmd.Printf("  Default results: %d\n", settings.Search.DefaultMatchCount)
	cmd.Printf("  Max results: %d\n", settings.Search.MaxMatchCount)
	cmd.Printf("  Channel timeout: %s\n", settings.Search.ChannelTimeout)
	cmd.Println()

	section("Backend")
	cmd.Printf("  Type: %s\n", settings.Backend.Type)
	switch settings.Backend.Type {
	case domain.BackendMongoDB:
		cmd.Printf("  URI: %s\n", maskSecret(settings.Backend.MongoDB.URI))
		cmd.Printf("  Database: %s\n", settings.Backend.MongoDB.Database)
		cmd.Printf("  Chunks: %s\n", settings.Backend.MongoDB.ChunksCollection)
		cmd.Printf("  Documents: %s\n", settings.Backend.MongoDB.DocumentsCollection)
		cmd.Printf("  Indexes: %s (vector), %s (text)\n",
			settings.Backend.MongoDB.VectorIndex, settings.Backend.MongoDB.TextIndex)
	case domain.BackendSQLite:
		cmd.Printf("  Path: %s\n", valueOrDefault(settings.Backend.SQLite.Path))
	}
	cmd.Println()

	section("Embedding")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	section("LLM")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Printf("  Temperature: %.2f\n", settings.LLM.Temperature)
	if settings.LLM.MaxTokens > 0 {
		cmd.Printf("  Max tokens: %d\n", settings.LLM.MaxTokens)
	}
	cmd.Println()

	section("Catalog")
	if settings.Catalog.BaseURL == "" {
		cmd.Println("  Status: not configured")
	} else {
		cmd.Printf("  Base URL: %s\n", settings.Catalog.BaseURL)
		cmd.Printf("  Username: %s\n", settings.Catalog.Username)
		cmd.Printf("  Password: %s\n", maskSecret(settings.Catalog.Password))
		cmd.Printf("  Timeout: %s\n", settings.Catalog.Timeout)
		cmd.Printf("  Rate limit: %.1f req/s\n", settings.Catalog.RequestsPerSecond)
	}
	cmd.Println()

	section("Link Cache")
	cmd.Printf("  Backend: %s\n", settings.LinkCache.Backend)
	if settings.LinkCache.Backend == domain.LinkCacheRedis {
		cmd.Printf("  Address: %s (db %d)\n", settings.LinkCache.RedisAddr, settings.LinkCache.RedisDB)
		cmd.Printf("  Key: %s\n", settings.LinkCache.RedisKey)
	} else {
		cmd.Printf("  Path: %s\n", valueOrDefault(settings.LinkCache.Path))
	}
	cmd.Println()

	section("Response")
	cmd.Printf("  Processors: %s\n", strings.Join(settings.Response.Processors, ", "))
	cmd.Printf("  Reasoning buffer: %d bytes\n", settings.Response.MaxThinkBuffer)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Println(style(w, warningStyle, "Warning: "+err.Error()))
		cmd.Println("Run 'sercha-rag settings set KEY VALUE' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Println("  Status: not configured")
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskSecret(apiKey))
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !slices.Contains(secretKeys, key) {
			return fmt.Errorf("missing value for %s: %w", key, domain.ErrInvalidInput)
		}
		cmd.Printf("Enter %s: ", key)
		value = readSecret(cmd.InOrStdin())
		cmd.Println()
	}

	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	if slices.Contains(secretKeys, key) {
		cmd.Printf("Set %s\n", key)
	} else {
		cmd.Printf("Set %s = %s\n", key, value)
	}
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, key := range settingsService.SettableKeys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	cmd.Println("Settings: OK")

	cmd.Print("Embedding provider... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("embedding provider: %w", err)
	}
	cmd.Println("OK")

	cmd.Print("LLM provider... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	cmd.Println("OK")

	return nil
}

// readSecret reads a line without echo when r is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(r io.Reader) string {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	input, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimSpace(input)
}

// maskSecret shows the ends of a secret, or a placeholder when unset.
func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func valueOrDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}
