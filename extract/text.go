// Package extract turns a parsed stock page into flat and profile records.
//
// Pages have no ids and no guaranteed section order, so everything here is
// anchored on visible text: a heading found by pattern, then content found by
// a fixed adjacency rule. A missing section produces an empty field, never an
// error.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Runs returns the whitespace-trimmed, non-empty text runs under s in
// document order. Script and style bodies and comments are not text.
func Runs(s *goquery.Selection) []string {
	var runs []string
	for _, n := range s.Nodes {
		collectRuns(n, &runs)
	}
	return runs
}

func collectRuns(n *html.Node, runs *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*runs = append(*runs, t)
		}
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectRuns(c, runs)
	}
}

// Text joins the text runs of s with sep. An empty sep glues runs together,
// which is how values such as "22.39M" split across spans read back.
func Text(s *goquery.Selection, sep string) string {
	return strings.Join(Runs(s), sep)
}

// FirstRun returns the first text run of s. Tooltip text nested after the
// label is dropped this way.
func FirstRun(s *goquery.Selection) (string, bool) {
	runs := Runs(s)
	if len(runs) == 0 {
		return "", false
	}
	return runs[0], true
}

// CleanText collapses every run of whitespace in s to one space.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
