package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tradelog/backend/src/models"
	"github.com/username/tradelog/backend/src/utils"
)

type statsServiceImpl struct {
	db    *sql.DB
	cache *cache.Cache
}

// NewStatsService returns the cached StatsService. Entries live until the
// cache TTL or until a trade mutation invalidates the user's keys.
func NewStatsService(db *sql.DB, statsCache *cache.Cache) StatsService {
	return &statsServiceImpl{db: db, cache: statsCache}
}

func statsKey(userID int64, name string) string {
	return fmt.Sprintf("stats:%d:%s", userID, name)
}

// invalidateStatsCache drops every cached stats entry for the user. Called
// by all trade mutations, including bulk import.
func invalidateStatsCache(c *cache.Cache, userID int64) {
	if c == nil {
		return
	}
	prefix := fmt.Sprintf("stats:%d:", userID)
	for key := range c.Items() {
		if strings.HasPrefix(key, prefix) {
			c.Delete(key)
		}
	}
}

func (s *statsServiceImpl) InvalidateUserCache(userID int64) {
	invalidateStatsCache(s.cache, userID)
}

const generalStatsQuery = `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'OPEN' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'CLOSED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pnl = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl), 0),
			COALESCE(AVG(pnl), 0),
			COALESCE(MAX(pnl), 0),
			COALESCE(MIN(pnl), 0)
		FROM trades
		WHERE deleted_at IS NULL AND user_id = ?`

func (s *statsServiceImpl) scanGeneralStats(row *sql.Row) (*models.GeneralStats, error) {
	stats := &models.GeneralStats{}
	err := row.Scan(
		&stats.TotalTrades, &stats.OpenTrades, &stats.ClosedTrades,
		&stats.WinningTrades, &stats.LosingTrades, &stats.BreakevenTrades,
		&stats.TotalPnL, &stats.AvgPnL, &stats.BestTrade, &stats.WorstTrade,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning general stats: %w", err)
	}
	closed := stats.WinningTrades + stats.LosingTrades + stats.BreakevenTrades
	if closed > 0 {
		stats.WinRate = utils.RoundFloat(float64(stats.WinningTrades)/float64(closed)*100, 2)
	}
	stats.TotalPnL = utils.RoundFloat(stats.TotalPnL, 2)
	stats.AvgPnL = utils.RoundFloat(stats.AvgPnL, 2)
	stats.BestTrade = utils.RoundFloat(stats.BestTrade, 2)
	stats.WorstTrade = utils.RoundFloat(stats.WorstTrade, 2)
	return stats, nil
}

func (s *statsServiceImpl) GetGeneralStats(userID int64) (*models.GeneralStats, error) {
	key := statsKey(userID, "general")
	if cached, found := s.cache.Get(key); found {
		return cached.(*models.GeneralStats), nil
	}

	stats, err := s.scanGeneralStats(s.db.QueryRow(generalStatsQuery, userID))
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, stats, cache.DefaultExpiration)
	return stats, nil
}

// GetStatsByDateRange filters on entry_date. Results are not cached since
// the range is caller-chosen.
func (s *statsServiceImpl) GetStatsByDateRange(userID int64, from, to time.Time) (*models.GeneralStats, error) {
	query := generalStatsQuery + " AND entry_date >= ? AND entry_date <= ?"
	return s.scanGeneralStats(s.db.QueryRow(query, userID, from, to))
}

func (s *statsServiceImpl) GetStatsBySymbol(userID int64) ([]models.SymbolStats, error) {
	key := statsKey(userID, "by-symbol")
	if cached, found := s.cache.Get(key); found {
		return cached.([]models.SymbolStats), nil
	}

	rows, err := s.db.Query(`
		SELECT
			symbol,
			COUNT(*),
			COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'CLOSED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl), 0),
			COALESCE(AVG(pnl), 0)
		FROM trades
		WHERE deleted_at IS NULL AND user_id = ?
		GROUP BY symbol
		ORDER BY COALESCE(SUM(pnl), 0) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying symbol stats: %w", err)
	}
	defer rows.Close()

	result := make([]models.SymbolStats, 0)
	for rows.Next() {
		var st models.SymbolStats
		var closed int
		if err := rows.Scan(&st.Symbol, &st.TotalTrades, &st.WinningTrades, &st.LosingTrades, &closed, &st.TotalPnL, &st.AvgPnL); err != nil {
			return nil, fmt.Errorf("scanning symbol stats: %w", err)
		}
		if closed > 0 {
			st.WinRate = utils.RoundFloat(float64(st.WinningTrades)/float64(closed)*100, 2)
		}
		st.TotalPnL = utils.RoundFloat(st.TotalPnL, 2)
		st.AvgPnL = utils.RoundFloat(st.AvgPnL, 2)
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

func (s *statsServiceImpl) GetStatsByTradeType(userID int64) ([]models.TypeStats, error) {
	key := statsKey(userID, "by-type")
	if cached, found := s.cache.Get(key); found {
		return cached.([]models.TypeStats), nil
	}

	rows, err := s.db.Query(`
		SELECT
			trade_type,
			COUNT(*),
			COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'CLOSED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl), 0),
			COALESCE(AVG(pnl), 0)
		FROM trades
		WHERE deleted_at IS NULL AND user_id = ?
		GROUP BY trade_type
		ORDER BY trade_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying trade type stats: %w", err)
	}
	defer rows.Close()

	result := make([]models.TypeStats, 0, 2)
	for rows.Next() {
		var st models.TypeStats
		var closed int
		if err := rows.Scan(&st.TradeType, &st.TotalTrades, &st.WinningTrades, &st.LosingTrades, &closed, &st.TotalPnL, &st.AvgPnL); err != nil {
			return nil, fmt.Errorf("scanning trade type stats: %w", err)
		}
		if closed > 0 {
			st.WinRate = utils.RoundFloat(float64(st.WinningTrades)/float64(closed)*100, 2)
		}
		st.TotalPnL = utils.RoundFloat(st.TotalPnL, 2)
		st.AvgPnL = utils.RoundFloat(st.AvgPnL, 2)
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// GetDailyPnL returns one point per day with closed trades over the last
// `days` days, with a running cumulative total.
func (s *statsServiceImpl) GetDailyPnL(userID int64, days int) ([]models.DailyPnLPoint, error) {
	key := statsKey(userID, fmt.Sprintf("daily-pnl:%d", days))
	if cached, found := s.cache.Get(key); found {
		return cached.([]models.DailyPnLPoint), nil
	}

	rows, err := s.db.Query(`
		SELECT
			date(entry_date) AS day,
			COUNT(*),
			SUM(pnl),
			SUM(SUM(pnl)) OVER (ORDER BY date(entry_date))
		FROM trades
		WHERE deleted_at IS NULL AND user_id = ?
			AND status = 'CLOSED' AND pnl IS NOT NULL
			AND date(entry_date) >= date('now', ?)
		GROUP BY date(entry_date)
		ORDER BY day`, userID, fmt.Sprintf("-%d day", days))
	if err != nil {
		return nil, fmt.Errorf("querying daily pnl: %w", err)
	}
	defer rows.Close()

	result := make([]models.DailyPnLPoint, 0)
	for rows.Next() {
		var pt models.DailyPnLPoint
		if err := rows.Scan(&pt.Date, &pt.TradesCount, &pt.DailyPnL, &pt.CumulativePnL); err != nil {
			return nil, fmt.Errorf("scanning daily pnl: %w", err)
		}
		pt.DailyPnL = utils.RoundFloat(pt.DailyPnL, 2)
		pt.CumulativePnL = utils.RoundFloat(pt.CumulativePnL, 2)
		result = append(result, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

func (s *statsServiceImpl) GetTopTrades(userID int64, limit int) (*models.TopTrades, error) {
	key := statsKey(userID, fmt.Sprintf("top-trades:%d", limit))
	if cached, found := s.cache.Get(key); found {
		return cached.(*models.TopTrades), nil
	}

	best, err := s.queryTopTrades(userID, limit, "DESC")
	if err != nil {
		return nil, err
	}
	worst, err := s.queryTopTrades(userID, limit, "ASC")
	if err != nil {
		return nil, err
	}

	result := &models.TopTrades{Best: best, Worst: worst}
	s.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

func (s *statsServiceImpl) queryTopTrades(userID int64, limit int, direction string) ([]models.TopTradeEntry, error) {
	if direction != "ASC" && direction != "DESC" {
		direction = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT id, symbol, trade_type, entry_price, exit_price, pnl, pnl_percentage, entry_date
		FROM trades
		WHERE deleted_at IS NULL AND user_id = ?
			AND status = 'CLOSED' AND pnl IS NOT NULL
		ORDER BY pnl %s
		LIMIT ?`, direction)

	rows, err := s.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top trades: %w", err)
	}
	defer rows.Close()

	result := make([]models.TopTradeEntry, 0, limit)
	for rows.Next() {
		var entry models.TopTradeEntry
		var entryDate time.Time
		if err := rows.Scan(&entry.ID, &entry.Symbol, &entry.TradeType, &entry.EntryPrice,
			&entry.ExitPrice, &entry.PnL, &entry.PnLPercentage, &entryDate); err != nil {
			return nil, fmt.Errorf("scanning top trade: %w", err)
		}
		entry.EntryDate = entryDate.UTC().Format(time.RFC3339)
		entry.PnL = utils.RoundFloat(entry.PnL, 2)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
