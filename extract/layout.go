package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Layout holds the anchors and key lists the profile assembler works from.
// A page variant gets its own Layout instead of code changes.
type Layout struct {
	Description  Section
	StockDetails Section
	Contact      Section
	Executives   Section

	// InfoKeys is the allow-list for the document-wide classification scan.
	InfoKeys []string
	// Prefixes turn merged-cell text blocks into labeled pairs.
	Prefixes []Prefix
}

// DefaultLayout matches the stockanalysis.com company page.
func DefaultLayout() Layout {
	return Layout{
		Description:  Section{Anchor: MustAnchor("h1", "Company Description"), Adjacency: NextSibling("div")},
		StockDetails: Section{Anchor: MustAnchor("h2", "Stock Details"), Adjacency: NextSibling("div")},
		Contact:      Section{Anchor: MustAnchor("h2", "Contact Details"), Adjacency: NextSibling("div")},
		Executives:   Section{Anchor: MustAnchor("h2", "Key Executives"), Adjacency: NextSibling("table")},
		InfoKeys: []string{
			"Country",
			"Founded",
			"IPO Date",
			"Industry",
			"Sector",
			"Employees",
			"CEO",
			"Website",
		},
		Prefixes: []Prefix{{Token: "Address:", Label: "Address"}},
	}
}

type sectionFile struct {
	Tag     string `yaml:"tag"`
	Pattern string `yaml:"pattern"`
	Next    string `yaml:"next"`
}

type layoutFile struct {
	Description  *sectionFile `yaml:"description"`
	StockDetails *sectionFile `yaml:"stock_details"`
	Contact      *sectionFile `yaml:"contact"`
	Executives   *sectionFile `yaml:"executives"`
	InfoKeys     []string     `yaml:"info_keys"`
	Prefixes     []Prefix     `yaml:"prefixes"`
}

// LoadLayout reads a YAML layout file. Anything the file leaves out keeps
// its DefaultLayout value.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	return ParseLayout(data)
}

// ParseLayout is LoadLayout over in-memory YAML.
func ParseLayout(data []byte) (Layout, error) {
	var f layoutFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}

	l := DefaultLayout()
	sections := []struct {
		src *sectionFile
		dst *Section
	}{
		{f.Description, &l.Description},
		{f.StockDetails, &l.StockDetails},
		{f.Contact, &l.Contact},
		{f.Executives, &l.Executives},
	}
	for _, s := range sections {
		if s.src == nil {
			continue
		}
		sec, err := s.src.section(*s.dst)
		if err != nil {
			return Layout{}, err
		}
		*s.dst = sec
	}
	if len(f.InfoKeys) > 0 {
		l.InfoKeys = f.InfoKeys
	}
	if len(f.Prefixes) > 0 {
		l.Prefixes = f.Prefixes
	}
	return l, nil
}

// section overlays the set fields of f onto def.
func (f sectionFile) section(def Section) (Section, error) {
	tag := def.Anchor.Tag
	if f.Tag != "" {
		tag = f.Tag
	}
	pattern := def.Anchor.Pattern.String()
	if f.Pattern != "" {
		pattern = f.Pattern
	}
	a, err := NewAnchor(tag, pattern)
	if err != nil {
		return Section{}, err
	}
	adj := def.Adjacency
	if f.Next != "" {
		adj = NextSibling(f.Next)
	}
	return Section{Anchor: a, Adjacency: adj}, nil
}
