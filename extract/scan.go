package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScanKeys walks every table under root, ignoring sections, and keeps the
// two-cell rows whose label is in allow. The last occurrence of a label wins.
func ScanKeys(root *goquery.Selection, allow []string) map[string]string {
	keys := make(map[string]bool, len(allow))
	for _, k := range allow {
		keys[k] = true
	}

	found := map[string]string{}
	eachTwoCellRow(root.Find("table"), func(p Pair) {
		label := strings.TrimSpace(p.Label)
		if keys[label] {
			found[label] = p.Value
		}
	})
	return found
}
