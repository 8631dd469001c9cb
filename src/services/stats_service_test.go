package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradelog/backend/src/database"
	"github.com/username/tradelog/backend/src/model"
	"github.com/username/tradelog/backend/src/models"
)

func newTestStatsService(t *testing.T) (StatsService, *cache.Cache) {
	t.Helper()
	database.InitDB(filepath.Join(t.TempDir(), "stats.db"))
	_, err := database.DB.Exec(`INSERT INTO users (username, password, email, is_email_verified) VALUES ('tester', 'hash', 'tester@example.com', 1)`)
	require.NoError(t, err)
	statsCache := cache.New(time.Minute, time.Minute)
	return NewStatsService(database.DB, statsCache), statsCache
}

func floatPtr(f float64) *float64 { return &f }

func insertTrade(t *testing.T, symbol, tradeType string, entryPrice float64, exitPrice *float64, quantity float64, day int) *model.Trade {
	t.Helper()
	entryDate := time.Date(2024, 1, day, 10, 0, 0, 0, time.UTC)
	c := models.TradeCandidate{
		EntryDate:  &entryDate,
		Symbol:     symbol,
		TradeType:  tradeType,
		EntryPrice: floatPtr(entryPrice),
		ExitPrice:  exitPrice,
		Quantity:   floatPtr(quantity),
	}
	if exitPrice != nil {
		c.ExitDate = &entryDate
	}
	trade, err := model.CreateTrade(database.DB, testUserID, c)
	require.NoError(t, err)
	return trade
}

func TestGetGeneralStats(t *testing.T) {
	svc, _ := newTestStatsService(t)

	insertTrade(t, "BTCUSDT", models.TradeTypeLong, 100, floatPtr(120), 1, 10)  // pnl +20
	insertTrade(t, "ETHUSDT", models.TradeTypeShort, 200, floatPtr(250), 1, 11) // pnl -50
	insertTrade(t, "SOLUSDT", models.TradeTypeLong, 50, nil, 2, 12)             // open

	stats, err := svc.GetGeneralStats(testUserID)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 1, stats.OpenTrades)
	assert.Equal(t, 2, stats.ClosedTrades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.Equal(t, 0, stats.BreakevenTrades)
	assert.InDelta(t, -30.0, stats.TotalPnL, 1e-9)
	assert.InDelta(t, -15.0, stats.AvgPnL, 1e-9)
	assert.InDelta(t, 20.0, stats.BestTrade, 1e-9)
	assert.InDelta(t, -50.0, stats.WorstTrade, 1e-9)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
}

func TestGetGeneralStatsEmpty(t *testing.T) {
	svc, _ := newTestStatsService(t)

	stats, err := svc.GetGeneralStats(testUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Zero(t, stats.TotalPnL)
	assert.Zero(t, stats.WinRate)
}

func TestGeneralStatsCachingAndInvalidation(t *testing.T) {
	svc, _ := newTestStatsService(t)
	insertTrade(t, "BTCUSDT", models.TradeTypeLong, 100, floatPtr(120), 1, 10)

	first, err := svc.GetGeneralStats(testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalTrades)

	// A write that bypasses the service layer is invisible until the
	// cache is invalidated.
	insertTrade(t, "ETHUSDT", models.TradeTypeLong, 100, nil, 1, 11)
	cached, err := svc.GetGeneralStats(testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalTrades)

	svc.InvalidateUserCache(testUserID)
	fresh, err := svc.GetGeneralStats(testUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalTrades)
}

func TestGetStatsBySymbol(t *testing.T) {
	svc, _ := newTestStatsService(t)

	insertTrade(t, "BTCUSDT", models.TradeTypeLong, 100, floatPtr(150), 1, 10) // +50
	insertTrade(t, "BTCUSDT", models.TradeTypeLong, 100, floatPtr(90), 1, 11)  // -10
	insertTrade(t, "ETHUSDT", models.TradeTypeLong, 100, floatPtr(110), 1, 12) // +10

	stats, err := svc.GetStatsBySymbol(testUserID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Ordered by total pnl, best symbol first.
	assert.Equal(t, "BTCUSDT", stats[0].Symbol)
	assert.Equal(t, 2, stats[0].TotalTrades)
	assert.Equal(t, 1, stats[0].WinningTrades)
	assert.Equal(t, 1, stats[0].LosingTrades)
	assert.InDelta(t, 40.0, stats[0].TotalPnL, 1e-9)
	assert.InDelta(t, 50.0, stats[0].WinRate, 1e-9)

	assert.Equal(t, "ETHUSDT", stats[1].Symbol)
	assert.InDelta(t, 100.0, stats[1].WinRate, 1e-9)
}

func TestGetStatsByTradeType(t *testing.T) {
	svc, _ := newTestStatsService(t)

	insertTrade(t, "BTCUSDT", models.TradeTypeLong, 100, floatPtr(150), 1, 10)
	insertTrade(t, "ETHUSDT", models.TradeTypeShort, 200, floatPtr(180), 1, 11)

	stats, err := svc.GetStatsByTradeType(testUserID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Ordered by trade type, LONG first.
	assert.Equal(t, models.TradeTypeLong, stats[0].TradeType)
	assert.InDelta(t, 50.0, stats[0].TotalPnL, 1e-9)
	assert.Equal(t, models.TradeTypeShort, stats[1].TradeType)
	assert.InDelta(t, 20.0, stats[1].TotalPnL, 1e-9)
}

func TestGetTopTrades(t *testing.T) {
	svc, _ := newTestStatsService(t)

	insertTrade(t, "BTCUSDT", models.TradeTypeLong, 100, floatPtr(150), 1, 10) // +50
	insertTrade(t, "ETHUSDT", models.TradeTypeLong, 100, floatPtr(90), 1, 11)  // -10
	insertTrade(t, "SOLUSDT", models.TradeTypeLong, 100, floatPtr(130), 1, 12) // +30
	insertTrade(t, "ADAUSDT", models.TradeTypeLong, 100, nil, 1, 13)           // open, excluded

	top, err := svc.GetTopTrades(testUserID, 2)
	require.NoError(t, err)

	require.Len(t, top.Best, 2)
	assert.Equal(t, "BTCUSDT", top.Best[0].Symbol)
	assert.InDelta(t, 50.0, top.Best[0].PnL, 1e-9)
	assert.Equal(t, "SOLUSDT", top.Best[1].Symbol)

	require.Len(t, top.Worst, 2)
	assert.Equal(t, "ETHUSDT", top.Worst[0].Symbol)
	assert.InDelta(t, -10.0, top.Worst[0].PnL, 1e-9)
}

func TestGetStatsByDateRange(t *testing.T) {
	svc, _ := newTestStatsService(t)

	insertTrade(t, "BTCUSDT", models.TradeTypeLong, 100, floatPtr(150), 1, 5)
	insertTrade(t, "ETHUSDT", models.TradeTypeLong, 100, floatPtr(110), 1, 20)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	stats, err := svc.GetStatsByDateRange(testUserID, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTrades)
	assert.InDelta(t, 50.0, stats.TotalPnL, 1e-9)
}

func TestGetDailyPnL(t *testing.T) {
	svc, _ := newTestStatsService(t)

	closedOn := func(day time.Time, pnlSpread float64) {
		exit := 100 + pnlSpread
		c := models.TradeCandidate{
			EntryDate:  &day,
			Symbol:     "BTCUSDT",
			TradeType:  models.TradeTypeLong,
			EntryPrice: floatPtr(100),
			ExitPrice:  floatPtr(exit),
			Quantity:   floatPtr(1),
			ExitDate:   &day,
		}
		_, err := model.CreateTrade(database.DB, testUserID, c)
		require.NoError(t, err)
	}

	twoDaysAgo := time.Now().UTC().AddDate(0, 0, -2)
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	closedOn(twoDaysAgo, 10)
	closedOn(yesterday, -4)
	closedOn(yesterday, 6)

	points, err := svc.GetDailyPnL(testUserID, 7)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, twoDaysAgo.Format("2006-01-02"), points[0].Date)
	assert.Equal(t, 1, points[0].TradesCount)
	assert.InDelta(t, 10.0, points[0].DailyPnL, 1e-9)
	assert.InDelta(t, 10.0, points[0].CumulativePnL, 1e-9)

	assert.Equal(t, yesterday.Format("2006-01-02"), points[1].Date)
	assert.Equal(t, 2, points[1].TradesCount)
	assert.InDelta(t, 2.0, points[1].DailyPnL, 1e-9)
	assert.InDelta(t, 12.0, points[1].CumulativePnL, 1e-9)
}

func TestInvalidateStatsCacheScopedToUser(t *testing.T) {
	statsCache := cache.New(time.Minute, time.Minute)
	statsCache.Set(statsKey(1, "general"), "a", cache.DefaultExpiration)
	statsCache.Set(statsKey(2, "general"), "b", cache.DefaultExpiration)

	invalidateStatsCache(statsCache, 1)

	_, found := statsCache.Get(statsKey(1, "general"))
	assert.False(t, found)
	_, found = statsCache.Get(statsKey(2, "general"))
	assert.True(t, found)

	// A nil cache is a no-op rather than a panic.
	invalidateStatsCache(nil, 1)
}
