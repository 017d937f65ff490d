package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// UnknownLabel is used for a two-cell row whose label cell has no text.
const UnknownLabel = "Unknown"

// Pair is one label/value row read from a table.
type Pair struct {
	Label string
	Value string
}

// Prefix maps the leading token of a merged-cell text block to the label it
// is emitted under, e.g. "Address:" -> "Address".
type Prefix struct {
	Token string `yaml:"token"`
	Label string `yaml:"label"`
}

// Pairs reads a table in row order. Two-cell rows become label/value pairs;
// a single merged cell whose text starts with one of prefixes becomes a
// synthetic pair. Any other row shape is skipped.
func Pairs(table *goquery.Selection, prefixes []Prefix) []Pair {
	var pairs []Pair
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		switch cells.Length() {
		case 2:
			pairs = append(pairs, cellPair(cells))
		case 1:
			if p, ok := mergedPair(cells, prefixes); ok {
				pairs = append(pairs, p)
			}
		}
	})
	return pairs
}

// PairMap merges pairs into a map; a repeated label keeps its last value.
func PairMap(pairs []Pair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Label] = p.Value
	}
	return m
}

// eachTwoCellRow calls fn for every two-cell row of every table in tables.
func eachTwoCellRow(tables *goquery.Selection, fn func(Pair)) {
	tables.Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if cells := row.Find("td"); cells.Length() == 2 {
				fn(cellPair(cells))
			}
		})
	})
}

func cellPair(cells *goquery.Selection) Pair {
	label, ok := FirstRun(cells.Eq(0))
	if !ok {
		label = UnknownLabel
	}
	return Pair{Label: label, Value: Text(cells.Eq(1), "")}
}

func mergedPair(cell *goquery.Selection, prefixes []Prefix) (Pair, bool) {
	if !spansColumns(cell) {
		return Pair{}, false
	}
	text := Text(cell, " ")
	for _, p := range prefixes {
		if strings.HasPrefix(text, p.Token) {
			return Pair{Label: p.Label, Value: strings.TrimSpace(strings.TrimPrefix(text, p.Token))}, true
		}
	}
	return Pair{}, false
}

// spansColumns reports whether cell carries a colspan other than 1. A bare or
// malformed colspan still counts.
func spansColumns(cell *goquery.Selection) bool {
	v, ok := cell.Attr("colspan")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return err != nil || n > 1
}
