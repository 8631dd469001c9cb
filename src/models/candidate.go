package models

import "time"

// TradeCandidate is a parsed-but-not-yet-persisted trade record produced by
// the CSV line parser. Pointer fields distinguish "absent/unparseable" from a
// legitimate zero value; the validator reports on nil where a field is
// required.
type TradeCandidate struct {
	EntryDate  *time.Time `json:"entry_date"`
	Symbol     string     `json:"symbol"`
	TradeType  string     `json:"trade_type"`
	EntryPrice *float64   `json:"entry_price"`
	ExitPrice  *float64   `json:"exit_price"`
	Quantity   *float64   `json:"quantity"`
	Commission float64    `json:"commission"`
	Notes      *string    `json:"notes"`
	ExitDate   *time.Time `json:"exit_date"`
}

// ParsedLine is the success arm of a line parse: the candidate plus where it
// came from. Line numbers are 1-based over the data lines, shifted by one when
// a header row was detected so they match the original input position.
type ParsedLine struct {
	LineNumber int            `json:"lineNumber"`
	Data       TradeCandidate `json:"data"`
	Raw        string         `json:"raw"`
}

// ParseFailure is the failure arm: all rule violations for the line joined
// into a single message.
type ParseFailure struct {
	LineNumber int    `json:"lineNumber"`
	Error      string `json:"error"`
	Raw        string `json:"raw"`
}

// ParseReport aggregates one pipeline run over the data lines of a CSV body.
type ParseReport struct {
	Valid      []ParsedLine
	Errors     []ParseFailure
	TotalLines int
}

// ImportSummary is the count block returned by the preview endpoint.
type ImportSummary struct {
	TotalLines int `json:"totalLines"`
	ValidLines int `json:"validLines"`
	ErrorLines int `json:"errorLines"`
}

// PreviewEntry pairs a line number with its parsed candidate for the preview
// response; the raw line is deliberately omitted for valid entries.
type PreviewEntry struct {
	LineNumber int            `json:"lineNumber"`
	Data       TradeCandidate `json:"data"`
}

// PreviewResult is the full response body of POST /api/trades/import/preview.
type PreviewResult struct {
	Preview []PreviewEntry `json:"preview"`
	Errors  []ParseFailure `json:"errors"`
	Summary ImportSummary  `json:"summary"`
}
