package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	askLimit    int
	askSource   string
	askNoStream bool
	askFormat   string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the knowledge base",
	Long: `Retrieves passages with hybrid search and asks the configured language
model to answer from them. Output is streamed as it is generated, with any
leading reasoning block removed.

Citations in the answer use the form (FILENAME.pdf, p. 42). When a Komga
catalog is configured, the links for cited pages are listed after a streamed
answer, and embedded in the text with --no-stream.

Use --format mrkdwn to translate the final answer into Slack markup; it
implies --no-stream.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 0, "number of passages used as context (default from settings)")
	askCmd.Flags().StringVar(&askSource, "source", "", "regular expression matched against document filenames")
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "print the post-processed answer once it is complete")
	askCmd.Flags().StringVar(&askFormat, "format", string(domain.MarkupMarkdown), "answer markup: markdown or mrkdwn")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	format := domain.MarkupFormat(askFormat)
	if !format.IsValid() {
		return fmt.Errorf("format %q: use markdown or mrkdwn: %w", askFormat, domain.ErrInvalidInput)
	}

	ctx := cmd.Context()
	opts := domain.AnswerOptions{
		MatchCount:   askLimit,
		SourceFilter: askSource,
		Markup:       format,
	}

	if askNoStream || format == domain.MarkupMrkdwn {
		answer, err := answerService.Answer(ctx, args[0], opts)
		if err != nil {
			return err
		}
		cmd.Println(answer.Text)
		return nil
	}

	w := cmd.OutOrStdout()
	answer, err := answerService.StreamAnswer(ctx, args[0], opts, func(text string) error {
		_, err := fmt.Fprint(w, text)
		return err
	})
	if err != nil {
		cmd.Println()
		return err
	}
	cmd.Println()

	printCitedLinks(cmd, answer)
	return nil
}

// printCitedLinks lists the deep links for pages the answer cites.
func printCitedLinks(cmd *cobra.Command, answer *domain.Answer) {
	if answer == nil || answer.Citations.Len() == 0 {
		return
	}

	var lines []string
	for key, url := range answer.Citations {
		if !strings.Contains(answer.Raw, key.Source) {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s, p. %d: %s", key.Source, key.Page, url))
	}
	if len(lines) == 0 {
		return
	}
	slices.Sort(lines)

	w := cmd.OutOrStdout()
	cmd.Println()
	cmd.Println(style(w, headingStyle, "Links:"))
	for _, line := range lines {
		cmd.Println(line)
	}
}
