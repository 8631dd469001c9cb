package models

// GeneralStats is the aggregate block returned by GET /api/stats and the
// date-range variant. Monetary figures are rounded to 2 decimals.
type GeneralStats struct {
	TotalTrades     int     `json:"total_trades"`
	OpenTrades      int     `json:"open_trades"`
	ClosedTrades    int     `json:"closed_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	BreakevenTrades int     `json:"breakeven_trades"`
	TotalPnL        float64 `json:"total_pnl"`
	AvgPnL          float64 `json:"avg_pnl"`
	BestTrade       float64 `json:"best_trade"`
	WorstTrade      float64 `json:"worst_trade"`
	WinRate         float64 `json:"win_rate"`
}

// SymbolStats aggregates one symbol's closed and open trades.
type SymbolStats struct {
	Symbol        string  `json:"symbol"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	WinRate       float64 `json:"win_rate"`
}

// TypeStats aggregates one trade direction (LONG or SHORT).
type TypeStats struct {
	TradeType     string  `json:"trade_type"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	WinRate       float64 `json:"win_rate"`
}

// DailyPnLPoint is one day of closed-trade PnL plus the running total.
type DailyPnLPoint struct {
	Date          string  `json:"date"`
	TradesCount   int     `json:"trades_count"`
	DailyPnL      float64 `json:"daily_pnl"`
	CumulativePnL float64 `json:"cumulative_pnl"`
}

// TopTradeEntry is the slim trade shape used in the best/worst listing.
type TopTradeEntry struct {
	ID            int64    `json:"id"`
	Symbol        string   `json:"symbol"`
	TradeType     string   `json:"trade_type"`
	EntryPrice    float64  `json:"entry_price"`
	ExitPrice     *float64 `json:"exit_price"`
	PnL           float64  `json:"pnl"`
	PnLPercentage *float64 `json:"pnl_percentage"`
	EntryDate     string   `json:"entry_date"`
}

// TopTrades pairs the best and worst closed trades by PnL.
type TopTrades struct {
	Best  []TopTradeEntry `json:"best"`
	Worst []TopTradeEntry `json:"worst"`
}
