package services

import (
	"errors"
	"time"

	"github.com/username/tradelog/backend/src/model"
	"github.com/username/tradelog/backend/src/models"
)

// ErrImageLimitExceeded is returned when attaching images would push a
// trade past the configured per-trade maximum.
var ErrImageLimitExceeded = errors.New("image limit exceeded for trade")

// UploadedImage carries an already-stored upload from the handler layer to
// the trade service. The file is on disk under the upload directory by the
// time the service sees it.
type UploadedImage struct {
	Filename     string
	OriginalName string
	FileSize     int64
	MimeType     string
}

// ImportResult is the outcome of a bulk CSV import. Success is true only
// when every line parsed, validated and persisted.
type ImportResult struct {
	Success  bool                  `json:"success"`
	Imported int                   `json:"imported"`
	Trades   []model.Trade         `json:"trades"`
	Errors   []models.ParseFailure `json:"errors"`
	Message  string                `json:"message"`
}

// ImportService turns raw CSV text into persisted trades or a line-level
// error report, never a partial mix of both.
type ImportService interface {
	PreviewCSV(csvData string) (*models.PreviewResult, error)
	ImportCSV(userID int64, csvData string) (*ImportResult, error)
}

// TradeService is the orchestration layer for trade CRUD and attachments.
type TradeService interface {
	ListTrades(userID int64, opts models.TradeListOptions) (*model.TradeList, error)
	GetTrade(userID, tradeID int64) (*model.Trade, error)
	CreateTrade(userID int64, candidate models.TradeCandidate, images []UploadedImage) (*model.Trade, error)
	UpdateTrade(userID, tradeID int64, update model.TradeUpdate) (*model.Trade, error)
	DeleteTrade(userID, tradeID int64, permanent bool) error
	AddImages(userID, tradeID int64, images []UploadedImage) (*model.Trade, error)
	DeleteImage(userID, tradeID, imageID int64) (*model.Trade, error)
	DeleteAllImages(userID, tradeID int64) (*model.Trade, error)
	GetUniqueSymbols(userID int64) ([]string, error)
}

// StatsService serves the aggregate reporting endpoints. Implementations
// cache per user and are invalidated by trade mutations.
type StatsService interface {
	GetGeneralStats(userID int64) (*models.GeneralStats, error)
	GetStatsBySymbol(userID int64) ([]models.SymbolStats, error)
	GetStatsByDateRange(userID int64, from, to time.Time) (*models.GeneralStats, error)
	GetDailyPnL(userID int64, days int) ([]models.DailyPnLPoint, error)
	GetStatsByTradeType(userID int64) ([]models.TypeStats, error)
	GetTopTrades(userID int64, limit int) (*models.TopTrades, error)
	InvalidateUserCache(userID int64)
}

// EmailService sends account lifecycle mail.
type EmailService interface {
	SendVerificationEmail(toEmail, username, token string) error
	SendPasswordResetEmail(toEmail, username, token string) error
}
