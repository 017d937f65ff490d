package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Profile assembles the company profile record from doc. Each part is
// located independently, so one missing or renamed section leaves only its
// own field empty.
func Profile(doc *goquery.Selection, layout Layout, symbol string) ProfileRecord {
	rec := newProfileRecord(symbol)

	rec.Description = description(layout.Description.Locate(doc))
	rec.Info = ScanKeys(doc, layout.InfoKeys)
	rec.StockDetails = PairMap(Pairs(firstTable(layout.StockDetails.Locate(doc)), layout.Prefixes))
	rec.Contact = PairMap(Pairs(firstTable(layout.Contact.Locate(doc)), layout.Prefixes))
	rec.Executives = executives(firstTable(layout.Executives.Locate(doc)))

	return rec
}

func description(container *goquery.Selection) string {
	var paras []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := CleanText(p.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	return strings.Join(paras, " ")
}

// firstTable returns s itself when it is a table, else its first table
// descendant.
func firstTable(s *goquery.Selection) *goquery.Selection {
	if s.Length() > 0 && goquery.NodeName(s) == "table" {
		return s.First()
	}
	return s.Find("table").First()
}

// executives reads name/title rows, skipping the header row.
func executives(table *goquery.Selection) []Executive {
	out := []Executive{}
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		out = append(out, Executive{
			Name:  Text(cells.Eq(0), ""),
			Title: Text(cells.Eq(1), ""),
		})
	})
	return out
}
