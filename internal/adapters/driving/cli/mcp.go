package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  search_knowledge_base - hybrid search returning a cited context block
  ask                   - answer a question with citations

By default the server communicates over stdio using JSON-RPC.

Use --http to serve the streamable HTTP transport instead. In HTTP mode
Prometheus metrics are exposed at /metrics.

Examples:
  # Stdio mode (default, for desktop assistants)
  sercha-rag mcp

  # HTTP mode (for MCP Inspector, remote access)
  sercha-rag mcp --http :8080

Assistant configuration:
  {
    "mcpServers": {
      "sercha-rag": {
        "command": "/path/to/sercha-rag",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve HTTP on this address instead of stdio (e.g. :8080)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	server, err := mcp.NewServer(&mcp.Ports{
		Search: searchService,
		Answer: answerService,
	})
	if err != nil {
		return err
	}

	stopWatch := startPromptWatch(cmd.Context())
	defer stopWatch()

	if mcpHTTPAddr != "" {
		server.SetMetricsHandler(metricsHandler)
		logger.Info("MCP server listening on %s", mcpHTTPAddr)
		cmd.PrintErrf("MCP server listening on http://%s\n", displayAddr(mcpHTTPAddr))
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}

// startPromptWatch runs the prompt watcher in the background and returns a
// function that stops it and waits for it to exit.
func startPromptWatch(ctx context.Context) func() {
	if watchPrompts == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := watchPrompts(ctx); err != nil {
			logger.Warn("Prompt hot reload unavailable: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// displayAddr fills in localhost for a bare ":port" address.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
