package racecard

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var spaceRun = regexp.MustCompile(`\s+`)

// collapseSpace folds runs of whitespace (including NBSP variants the site
// is fond of) into single spaces and trims the ends.
func collapseSpace(s string) string {
	s = strings.NewReplacer(" ", " ", "　", " ").Replace(s)
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// cellText renders a cell's visible text. Line breaks become " / " so
// multi-line cells (owner names, gear lists) stay one logical value, which
// is how the extraction rules expect them.
func cellText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		writeNodeText(&b, node)
	}
	return collapseSpace(b.String())
}

func writeNodeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteString(" / ")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(b, c)
	}
}

// containsAny reports whether s contains at least one needle.
func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// countKeywordHits counts (case-insensitively for latin keywords) how many
// of the needles occur in s.
func countKeywordHits(s string, needles []string) int {
	lower := strings.ToLower(s)
	hits := 0
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			hits++
		}
	}
	return hits
}
