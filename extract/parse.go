package extract

import (
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Parse builds a document from raw markup.
func Parse(r io.Reader) (*goquery.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	return goquery.NewDocumentFromNode(root), nil
}
