package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Komga catalog commands",
	Long: `Commands for the Komga catalog that answer citations link into.

Configure it with:
  sercha-rag settings set catalog.base_url https://komga.example.com
  sercha-rag settings set catalog.username reader@example.com
  sercha-rag settings set catalog.password`,
}

var catalogTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check the catalog connection",
	Args:  cobra.NoArgs,
	RunE:  runCatalogTest,
}

var catalogResolveCmd = &cobra.Command{
	Use:   "resolve FILE [PAGE]",
	Short: "Print the reader link for a page of a document",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCatalogResolve,
}

func init() {
	catalogCmd.AddCommand(catalogTestCmd)
	catalogCmd.AddCommand(catalogResolveCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogTest(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	status, err := catalogService.TestConnection(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Println(status)
	return nil
}

func runCatalogResolve(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	page := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("page %q must be a positive number: %w", args[1], domain.ErrInvalidInput)
		}
		page = n
	}

	url, ok := catalogService.ResolvePage(cmd.Context(), args[0], page)
	if !ok {
		return fmt.Errorf("no catalog link for %s page %d", args[0], page)
	}
	cmd.Println(url)
	return nil
}
