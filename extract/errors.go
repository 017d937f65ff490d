package extract

import (
	"errors"
	"fmt"
)

// ErrStructureNotFound means a parsed page has no tables at all. That points
// at a changed page layout rather than a missing optional section.
var ErrStructureNotFound = errors.New("no tables found on the page, the site structure may have changed")

// ParseError wraps a failure to turn raw bytes into a node tree.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse HTML: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
