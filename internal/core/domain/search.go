package domain

import (
	"fmt"
	"sort"
)

const unknownDescription = "Unknown"

// SearchMode selects which retrieval channels a search uses.
type SearchMode string

// Available search modes.
const (
	// SearchModeHybrid runs the vector and text channels and fuses them.
	SearchModeHybrid SearchMode = "hybrid"

	// SearchModeSemantic uses only the vector channel.
	SearchModeSemantic SearchMode = "semantic"

	// SearchModeText uses only the fuzzy full-text channel.
	SearchModeText SearchMode = "text"
)

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchModeHybrid, SearchModeSemantic, SearchModeText:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if this mode needs an embedding provider.
func (m SearchMode) RequiresEmbedding() bool {
	return m == SearchModeHybrid || m == SearchModeSemantic
}

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m SearchMode) Description() string {
	switch m {
	case SearchModeHybrid:
		return "Hybrid (vector + fuzzy text, reciprocal rank fusion)"
	case SearchModeSemantic:
		return "Semantic (vector similarity only)"
	case SearchModeText:
		return "Text (fuzzy full-text only)"
	default:
		return unknownDescription
	}
}

// AllSearchModes returns all available search modes.
func AllSearchModes() []SearchMode {
	return []SearchMode{
		SearchModeHybrid,
		SearchModeSemantic,
		SearchModeText,
	}
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// MatchCount is the number of results requested.
	// Zero or negative selects the configured default.
	MatchCount int

	// SourceFilter is an optional regular expression matched against
	// each result's DocumentSource.
	SourceFilter string

	// Mode selects the retrieval channels. Empty selects the configured default.
	Mode SearchMode
}

// SearchResult is a single retrieved chunk joined with its parent document.
type SearchResult struct {
	// ChunkID identifies the chunk. It is unique within one channel's list.
	ChunkID string

	// DocumentID links to the parent document.
	DocumentID string

	// Content is the chunk text.
	Content string

	// Score is channel-native before fusion and the RRF score after it.
	Score float64

	// Metadata holds page numbers and residual attributes.
	Metadata ChunkMetadata

	// DocumentTitle is the parent document's title.
	DocumentTitle string

	// DocumentSource is the parent document's filename or URI.
	DocumentSource string
}

// ChunkMetadata is the typed view of a chunk's metadata.
// PageNumbers is promoted to a field; everything else stays in Extra.
type ChunkMetadata struct {
	PageNumbers []int
	Extra       map[string]any
}

// pageNumbersKey is the metadata key carrying page numbers in storage.
const pageNumbersKey = "page_numbers"

// ParseChunkMetadata builds a ChunkMetadata from a raw metadata map.
// Page numbers may arrive as any numeric type, or as a single number.
// Unparseable page entries are skipped.
func ParseChunkMetadata(raw map[string]any) ChunkMetadata {
	var md ChunkMetadata
	for k, v := range raw {
		if k == pageNumbersKey {
			md.PageNumbers = toInts(v)
			continue
		}
		if md.Extra == nil {
			md.Extra = make(map[string]any)
		}
		md.Extra[k] = v
	}
	return md
}

// Map flattens the metadata back into a raw map.
func (m ChunkMetadata) Map() map[string]any {
	out := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	if len(m.PageNumbers) > 0 {
		out[pageNumbersKey] = m.PageNumbers
	}
	return out
}

// FirstPage returns the first page number, if any.
func (m ChunkMetadata) FirstPage() (int, bool) {
	if len(m.PageNumbers) == 0 {
		return 0, false
	}
	return m.PageNumbers[0], true
}

// PageLabel renders the page range as "page N" or "pages N-M".
// The range uses the first and last entries as stored; it does not sort.
func (m ChunkMetadata) PageLabel() string {
	switch len(m.PageNumbers) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("page %d", m.PageNumbers[0])
	default:
		first, last := m.PageNumbers[0], m.PageNumbers[len(m.PageNumbers)-1]
		if first == last {
			return fmt.Sprintf("page %d", first)
		}
		return fmt.Sprintf("pages %d-%d", first, last)
	}
}

func toInts(v any) []int {
	switch t := v.(type) {
	case []int:
		return append([]int(nil), t...)
	case []any:
		out := make([]int, 0, len(t))
		for _, e := range t {
			if n, ok := toInt(e); ok {
				out = append(out, n)
			}
		}
		return out
	case []int32:
		out := make([]int, len(t))
		for i, n := range t {
			out[i] = int(n)
		}
		return out
	case []int64:
		out := make([]int, len(t))
		for i, n := range t {
			out[i] = int(n)
		}
		return out
	case []float64:
		out := make([]int, len(t))
		for i, n := range t {
			out[i] = int(n)
		}
		return out
	default:
		if n, ok := toInt(v); ok {
			return []int{n}
		}
		return nil
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// ChannelStatus is the outcome of a single retrieval channel.
type ChannelStatus int

// Channel outcomes.
const (
	// ChannelSucceeded means the channel returned at least one result.
	ChannelSucceeded ChannelStatus = iota

	// ChannelEmpty means the channel ran but found nothing.
	ChannelEmpty

	// ChannelFailed means the backend errored or timed out.
	ChannelFailed
)

// String returns the label used in logs and metrics.
func (s ChannelStatus) String() string {
	switch s {
	case ChannelSucceeded:
		return "success"
	case ChannelEmpty:
		return "empty"
	case ChannelFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Channel names.
const (
	ChannelVector = "vector"
	ChannelText   = "text"
)

// ChannelResult distinguishes "found nothing" from "could not search".
type ChannelResult struct {
	Channel string
	Status  ChannelStatus
	Results []SearchResult
	Err     error
}

// ChannelSuccess wraps results, downgrading to ChannelEmpty when there are none.
func ChannelSuccess(channel string, results []SearchResult) ChannelResult {
	if len(results) == 0 {
		return ChannelNoResults(channel)
	}
	return ChannelResult{Channel: channel, Status: ChannelSucceeded, Results: results}
}

// ChannelNoResults is an empty outcome.
func ChannelNoResults(channel string) ChannelResult {
	return ChannelResult{Channel: channel, Status: ChannelEmpty}
}

// ChannelFailure records a backend error.
func ChannelFailure(channel string, err error) ChannelResult {
	return ChannelResult{Channel: channel, Status: ChannelFailed, Err: err}
}

// HasResults reports whether the channel contributed anything.
func (r ChannelResult) HasResults() bool {
	return r.Status == ChannelSucceeded && len(r.Results) > 0
}

// SortByScore sorts results by score descending, keeping input order on ties.
func SortByScore(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
