package services

import (
	"database/sql"
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/username/tradelog/backend/src/logger"
	"github.com/username/tradelog/backend/src/model"
	"github.com/username/tradelog/backend/src/models"
	"github.com/username/tradelog/backend/src/parsers"
)

type importServiceImpl struct {
	db         *sql.DB
	parser     *parsers.CSVParser
	statsCache *cache.Cache
}

// NewImportService wires the CSV parser to the trade store. The stats cache
// is invalidated for the user after a successful import.
func NewImportService(db *sql.DB, parser *parsers.CSVParser, statsCache *cache.Cache) ImportService {
	return &importServiceImpl{db: db, parser: parser, statsCache: statsCache}
}

// PreviewCSV runs the parse pipeline without touching the database. Running
// it any number of times leaves stored data unchanged.
func (s *importServiceImpl) PreviewCSV(csvData string) (*models.PreviewResult, error) {
	report, err := s.parser.Parse(csvData)
	if err != nil {
		return nil, err
	}

	preview := make([]models.PreviewEntry, 0, len(report.Valid))
	for _, line := range report.Valid {
		preview = append(preview, models.PreviewEntry{LineNumber: line.LineNumber, Data: line.Data})
	}

	return &models.PreviewResult{
		Preview: preview,
		Errors:  report.Errors,
		Summary: models.ImportSummary{
			TotalLines: report.TotalLines,
			ValidLines: len(report.Valid),
			ErrorLines: len(report.Errors),
		},
	}, nil
}

// ImportCSV is all-or-nothing: if any line fails to parse or validate,
// nothing is persisted and the per-line errors are returned instead.
func (s *importServiceImpl) ImportCSV(userID int64, csvData string) (*ImportResult, error) {
	report, err := s.parser.Parse(csvData)
	if err != nil {
		return nil, err
	}

	if len(report.Errors) > 0 {
		logger.L.Warn("CSV import rejected", "userID", userID, "errorLines", len(report.Errors), "totalLines", report.TotalLines)
		return &ImportResult{
			Success:  false,
			Imported: 0,
			Trades:   []model.Trade{},
			Errors:   report.Errors,
			Message:  fmt.Sprintf("found %d errors in the CSV", len(report.Errors)),
		}, nil
	}

	if len(report.Valid) == 0 {
		return &ImportResult{
			Success:  false,
			Imported: 0,
			Trades:   []model.Trade{},
			Errors:   []models.ParseFailure{},
			Message:  "no valid rows to import",
		}, nil
	}

	candidates := make([]models.TradeCandidate, 0, len(report.Valid))
	for _, line := range report.Valid {
		candidates = append(candidates, line.Data)
	}

	trades, err := model.CreateTrades(s.db, userID, candidates)
	if err != nil {
		logger.L.Error("bulk trade insert failed", "userID", userID, "rows", len(candidates), "error", err)
		return nil, fmt.Errorf("persisting imported trades: %w", err)
	}

	invalidateStatsCache(s.statsCache, userID)
	logger.L.Info("CSV import committed", "userID", userID, "imported", len(trades))

	return &ImportResult{
		Success:  true,
		Imported: len(trades),
		Trades:   trades,
		Errors:   []models.ParseFailure{},
		Message:  fmt.Sprintf("imported %d trades successfully", len(trades)),
	}, nil
}
