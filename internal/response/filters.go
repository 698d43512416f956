package response

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRe = regexp.MustCompile(`<think>[\s\S]*?</think>\s*`)

	toolCallRe   = regexp.MustCompile(`\{"tool":\s*"[^"]+",\s*"args":\s*\{[^}]*\}\}`)
	toolResultRe = regexp.MustCompile(`(?is)\[Tool Result:.*?\]`)
	toolEchoRe   = regexp.MustCompile(`search_knowledge_base\([^)]*\)\s*->\s*`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	innerSpaceRe = regexp.MustCompile(`(\S) {2,}`)
)

// FilterThink removes reasoning blocks from a complete response.
// Text before a stray closing marker without an opening tag is dropped too.
func FilterThink(text string) string {
	filtered := thinkBlockRe.ReplaceAllString(text, "")
	if idx := strings.Index(filtered, ThinkEndMarker); idx >= 0 {
		filtered = filtered[idx+len(ThinkEndMarker):]
	}
	return strings.TrimSpace(filtered)
}

// FilterToolArtifacts removes echoed tool calls and tool results.
// Indentation is preserved; runs of spaces inside a line are collapsed.
func FilterToolArtifacts(text string) string {
	filtered := toolCallRe.ReplaceAllString(text, "")
	filtered = toolResultRe.ReplaceAllString(filtered, "")
	filtered = toolEchoRe.ReplaceAllString(filtered, "")
	filtered = blankLinesRe.ReplaceAllString(filtered, "\n\n")
	filtered = innerSpaceRe.ReplaceAllString(filtered, "$1 ")
	return strings.TrimSpace(filtered)
}

// FilterResponse applies reasoning removal then tool artifact cleanup.
func FilterResponse(text string) string {
	return FilterToolArtifacts(FilterThink(text))
}
