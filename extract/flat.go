package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// Flat collects every two-cell row of every table in doc into one record.
// Labels repeat across tables on real pages; the last row in document order
// wins. A document without a single table yields ErrStructureNotFound.
func Flat(doc *goquery.Selection, symbol string) (FlatRecord, error) {
	tables := doc.Find("table")
	if tables.Length() == 0 {
		return FlatRecord{}, ErrStructureNotFound
	}

	rec := FlatRecord{Symbol: symbol, Entries: map[string]string{}}
	eachTwoCellRow(tables, func(p Pair) {
		rec.Entries[p.Label] = p.Value
	})
	return rec, nil
}
