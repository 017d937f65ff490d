package extract

// FlatRecord is the label/value view of a price page.
type FlatRecord struct {
	Symbol  string            `json:"symbol"`
	Source  string            `json:"source,omitempty"`
	Entries map[string]string `json:"data"`
}

// Executive is one row of the key executives table.
type Executive struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// ProfileRecord is the company profile view. Every field is non-nil so an
// absent section serializes as an empty value rather than null.
type ProfileRecord struct {
	Symbol       string            `json:"symbol"`
	Source       string            `json:"source,omitempty"`
	Description  string            `json:"description"`
	Info         map[string]string `json:"info"`
	StockDetails map[string]string `json:"stock_details"`
	Contact      map[string]string `json:"contact"`
	Executives   []Executive       `json:"executives"`
}

func newProfileRecord(symbol string) ProfileRecord {
	return ProfileRecord{
		Symbol:       symbol,
		Info:         map[string]string{},
		StockDetails: map[string]string{},
		Contact:      map[string]string{},
		Executives:   []Executive{},
	}
}
