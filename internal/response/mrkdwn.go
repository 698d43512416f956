package response

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Placeholders are NUL-delimited so they cannot collide with model text.
const (
	phCodeBlock  = "CB"
	phInlineCode = "IC"
	phLink       = "LK"
	boldMark     = "\x01"
)

var (
	fenceRe      = regexp.MustCompile("(?s)```(?:([A-Za-z0-9_+-]+)\n)?(.*?)```")
	inlineCodeRe = regexp.MustCompile("`[^`\n]+`")
	mdLinkRe     = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\s]+)\)`)
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+?)[ \t#]*$`)
	strongEmRe   = regexp.MustCompile(`\*\*\*(.+?)\*\*\*|___(.+?)___`)
	strongStarRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
	strongLineRe = regexp.MustCompile(`__(.+?)__`)
	bulletRe     = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	strikeRe     = regexp.MustCompile(`~~(.+?)~~`)
	placeholdRe  = regexp.MustCompile("\x00(" + phCodeBlock + "|" + phInlineCode + "|" + phLink + `)([0-9]+)` + "\x00")

	// A single-star span; the lookarounds keep bullets, bold markers and
	// stars inside words out of it.
	italicStarRe = regexp2.MustCompile(`(?<![\w*])\*(?![\s*])([^*\n]+?)(?<![\s*])\*(?![\w*])`, regexp2.None)
)

type placeholders struct {
	kinds map[string][]string
}

func (p *placeholders) protect(kind, s string) string {
	if p.kinds == nil {
		p.kinds = make(map[string][]string)
	}
	p.kinds[kind] = append(p.kinds[kind], s)
	return fmt.Sprintf("\x00%s%d\x00", kind, len(p.kinds[kind])-1)
}

func (p *placeholders) restore(text string) string {
	// Link labels may contain inline code placeholders, so restore until stable.
	for i := 0; i < 3 && strings.Contains(text, "\x00"); i++ {
		text = placeholdRe.ReplaceAllStringFunc(text, func(m string) string {
			sub := placeholdRe.FindStringSubmatch(m)
			idx, err := strconv.Atoi(sub[2])
			if err != nil || idx >= len(p.kinds[sub[1]]) {
				return m
			}
			return p.kinds[sub[1]][idx]
		})
	}
	return text
}

// ToMrkdwn translates Markdown into Slack mrkdwn.
//
// Code is protected first and never altered. Links become <url|text>,
// headings and strong emphasis become *bold*, ***both*** becomes *_both_*,
// list markers become bullets, single-star emphasis becomes _italic_ and
// ~~strike~~ becomes ~strike~.
func ToMrkdwn(text string) string {
	if text == "" {
		return text
	}
	var ph placeholders

	text = fenceRe.ReplaceAllStringFunc(text, func(m string) string {
		// Slack shows a language tag as code, so it is dropped.
		if sub := fenceRe.FindStringSubmatch(m); sub[1] != "" {
			m = "```\n" + sub[2] + "```"
		}
		return ph.protect(phCodeBlock, m)
	})
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		return ph.protect(phInlineCode, m)
	})
	text = mdLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := mdLinkRe.FindStringSubmatch(m)
		return ph.protect(phLink, "<"+sub[2]+"|"+sub[1]+">")
	})

	text = headingRe.ReplaceAllStringFunc(text, func(m string) string {
		title := headingRe.FindStringSubmatch(m)[1]
		title = strings.ReplaceAll(title, "**", "")
		title = strings.ReplaceAll(title, "__", "")
		return boldMark + title + boldMark
	})
	// Triple emphasis nests italic inside bold so the markers do not cross.
	text = strongEmRe.ReplaceAllString(text, boldMark+"_${1}${2}_"+boldMark)
	text = strongStarRe.ReplaceAllString(text, boldMark+"$1"+boldMark)
	text = strongLineRe.ReplaceAllString(text, boldMark+"$1"+boldMark)

	text = bulletRe.ReplaceAllString(text, "${1}• ")

	if out, err := italicStarRe.ReplaceFunc(text, func(m regexp2.Match) string {
		return "_" + m.GroupByNumber(1).String() + "_"
	}, -1, -1); err == nil {
		text = out
	} else {
		logger.Warn("mrkdwn italics: %v", err)
	}

	text = strikeRe.ReplaceAllString(text, "~$1~")

	text = strings.ReplaceAll(text, boldMark, "*")
	return ph.restore(text)
}
