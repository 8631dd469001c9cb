package models

import "time"

// TradeListOptions carries one list request's paging, sorting and filter
// parameters. It is built and validated by the handler layer; by the time it
// reaches the store, SortBy is allow-listed and SortDir is ASC or DESC.
type TradeListOptions struct {
	Page    int
	Limit   int
	SortBy  string
	SortDir string

	Status    string
	Symbol    string
	TradeType string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// DefaultTradeListOptions returns options with the documented defaults applied.
func DefaultTradeListOptions() TradeListOptions {
	return TradeListOptions{
		Page:    DefaultPage,
		Limit:   DefaultLimit,
		SortBy:  "entry_date",
		SortDir: SortDesc,
	}
}
