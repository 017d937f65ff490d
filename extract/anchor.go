package extract

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

// Anchor identifies a heading-like node by tag and a case-sensitive pattern
// matched against its visible text.
type Anchor struct {
	Tag     string
	Pattern *regexp.Regexp
}

// NewAnchor compiles pattern into an Anchor.
func NewAnchor(tag, pattern string) (Anchor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Anchor{}, fmt.Errorf("anchor %s %q: %w", tag, pattern, err)
	}
	return Anchor{Tag: tag, Pattern: re}, nil
}

// MustAnchor is NewAnchor for patterns known at compile time.
func MustAnchor(tag, pattern string) Anchor {
	a, err := NewAnchor(tag, pattern)
	if err != nil {
		panic(err)
	}
	return a
}

// Find returns the first matching node under root, or an empty selection.
func (a Anchor) Find(root *goquery.Selection) *goquery.Selection {
	return root.Find(a.Tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return a.Pattern.MatchString(Text(s, " "))
	}).First()
}

// Adjacency resolves an anchor node to the content that belongs to it.
type Adjacency interface {
	Resolve(anchor *goquery.Selection) *goquery.Selection
}

// NextSibling resolves to the first following sibling element with this tag.
type NextSibling string

// Resolve implements Adjacency.
func (tag NextSibling) Resolve(anchor *goquery.Selection) *goquery.Selection {
	return anchor.NextAllFiltered(string(tag)).First()
}

// Section pairs an anchor with the rule that finds its content.
type Section struct {
	Anchor    Anchor
	Adjacency Adjacency
}

// Locate returns the section content under root. The result is empty when
// either the heading or its content is missing; callers treat that as an
// empty section.
func (s Section) Locate(root *goquery.Selection) *goquery.Selection {
	heading := s.Anchor.Find(root)
	if heading.Length() == 0 || s.Adjacency == nil {
		return heading.Slice(0, 0)
	}
	return s.Adjacency.Resolve(heading)
}
