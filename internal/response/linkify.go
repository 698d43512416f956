package response

import (
	"path"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// CachedResolver resolves a deep link without network access.
type CachedResolver interface {
	ResolveCached(filename string, page int) (string, bool)
}

// dashes are the glyphs models use in page ranges in place of a hyphen.
const dashes = `\-‐‑‒–—−`

// citationRe matches "FILE.pdf, p. 12" and "FILE, pp. 12-14". The first
// lookbehind rejects a filename in the middle of a longer token; the second
// rejects one anywhere inside an unclosed Markdown link label on its line.
var citationRe = regexp2.MustCompile(
	`(?<![\w.\-])(?<!\[[^\]\n]*)([A-Za-z0-9_][\w.\-]*),\s*(?i:(pp?\.|pages?))\s*([0-9]+)(?:\s*[`+dashes+`]\s*([0-9]+))?`,
	regexp2.None,
)

var dashReplacer = strings.NewReplacer(
	"‐", "-", "‑", "-", "‒", "-",
	"–", "-", "—", "-", "−", "-",
)

// LinkifyCitations turns inline citations into Markdown links.
//
// Each citation is looked up by (filename, first page) in citations, then
// through fallback. Citations without a link are left as written; dash
// glyphs are normalised to a hyphen only inside rewritten citations. Text
// already inside a link label is never linked again, so running it twice
// gives the same text.
func LinkifyCitations(text string, citations domain.CitationMap, fallback CachedResolver) string {
	if text == "" {
		return text
	}
	out, err := citationRe.ReplaceFunc(text, func(m regexp2.Match) string {
		groups := m.Groups()
		filename := groups[1].String()
		page, err := strconv.Atoi(groups[3].String())
		if err != nil {
			return m.String()
		}
		url, ok := lookupCitation(filename, page, citations, fallback)
		if !ok {
			return m.String()
		}
		return "[" + dashReplacer.Replace(m.String()) + "](" + url + ")"
	}, -1, -1)
	if err != nil {
		logger.Warn("linkify citations: %v", err)
		return text
	}
	return out
}

func lookupCitation(filename string, page int, citations domain.CitationMap, fallback CachedResolver) (string, bool) {
	if url, ok := citations.Lookup(filename, page); ok {
		return url, true
	}
	if path.Ext(filename) == "" {
		if url, ok := citations.Lookup(filename+".pdf", page); ok {
			return url, true
		}
	}
	if fallback != nil {
		return fallback.ResolveCached(filename, page)
	}
	return "", false
}
