package models

// Trade direction values accepted across the parser, validator and store.
const (
	TradeTypeLong  = "LONG"
	TradeTypeShort = "SHORT"
)

// Trade lifecycle status, derived from the exit fields by the store.
const (
	TradeStatusOpen   = "OPEN"
	TradeStatusClosed = "CLOSED"
)

// Sort directions accepted by the list endpoint.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// SortableTradeFields is the allow-list of columns the list endpoint may sort
// by. Only values present here are ever interpolated into an ORDER BY clause.
var SortableTradeFields = map[string]bool{
	"entry_date":     true,
	"exit_date":      true,
	"created_at":     true,
	"updated_at":     true,
	"symbol":         true,
	"pnl":            true,
	"pnl_percentage": true,
	"quantity":       true,
}

// Pagination defaults for trade listing.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

const (
	MaxSymbolLength = 20
	MaxNotesLength  = 2000
)

func IsValidTradeType(t string) bool {
	return t == TradeTypeLong || t == TradeTypeShort
}

func IsValidTradeStatus(s string) bool {
	return s == TradeStatusOpen || s == TradeStatusClosed
}

func IsValidSortDir(dir string) bool {
	return dir == SortAsc || dir == SortDesc
}
