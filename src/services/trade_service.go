package services

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/patrickmn/go-cache"
	"github.com/username/tradelog/backend/src/config"
	"github.com/username/tradelog/backend/src/logger"
	"github.com/username/tradelog/backend/src/model"
	"github.com/username/tradelog/backend/src/models"
	"github.com/username/tradelog/backend/src/utils"
)

type tradeServiceImpl struct {
	db         *sql.DB
	statsCache *cache.Cache
}

// NewTradeService returns the default TradeService backed by the trades
// tables. Every mutation drops the owning user's cached stats.
func NewTradeService(db *sql.DB, statsCache *cache.Cache) TradeService {
	return &tradeServiceImpl{db: db, statsCache: statsCache}
}

func (s *tradeServiceImpl) ListTrades(userID int64, opts models.TradeListOptions) (*model.TradeList, error) {
	return model.ListTrades(s.db, userID, opts)
}

func (s *tradeServiceImpl) GetTrade(userID, tradeID int64) (*model.Trade, error) {
	return model.GetTradeByID(s.db, userID, tradeID)
}

func (s *tradeServiceImpl) CreateTrade(userID int64, candidate models.TradeCandidate, images []UploadedImage) (*model.Trade, error) {
	trade, err := model.CreateTrade(s.db, userID, candidate)
	if err != nil {
		return nil, err
	}

	if len(images) > 0 {
		if _, err := s.attachImages(trade.ID, trade.Images, images); err != nil {
			return nil, err
		}
		trade, err = model.GetTradeByID(s.db, userID, trade.ID)
		if err != nil {
			return nil, err
		}
	}

	invalidateStatsCache(s.statsCache, userID)
	logger.L.Info("trade created", "userID", userID, "tradeID", trade.ID, "symbol", trade.Symbol)
	return trade, nil
}

func (s *tradeServiceImpl) UpdateTrade(userID, tradeID int64, update model.TradeUpdate) (*model.Trade, error) {
	trade, err := model.UpdateTrade(s.db, userID, tradeID, update)
	if err != nil {
		return nil, err
	}
	invalidateStatsCache(s.statsCache, userID)
	return trade, nil
}

// DeleteTrade soft-deletes by default. A permanent delete removes the row,
// its image rows and the files on disk.
func (s *tradeServiceImpl) DeleteTrade(userID, tradeID int64, permanent bool) error {
	if !permanent {
		if err := model.SoftDeleteTrade(s.db, userID, tradeID); err != nil {
			return err
		}
		invalidateStatsCache(s.statsCache, userID)
		return nil
	}

	trade, err := model.GetTradeByID(s.db, userID, tradeID)
	if err != nil {
		return err
	}
	if err := model.HardDeleteTrade(s.db, userID, tradeID); err != nil {
		return err
	}
	for _, img := range trade.Images {
		s.removeImageFile(img.Filename)
	}
	invalidateStatsCache(s.statsCache, userID)
	logger.L.Info("trade permanently deleted", "userID", userID, "tradeID", tradeID, "images", len(trade.Images))
	return nil
}

func (s *tradeServiceImpl) AddImages(userID, tradeID int64, images []UploadedImage) (*model.Trade, error) {
	trade, err := model.GetTradeByID(s.db, userID, tradeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.attachImages(tradeID, trade.Images, images); err != nil {
		return nil, err
	}
	return model.GetTradeByID(s.db, userID, tradeID)
}

func (s *tradeServiceImpl) attachImages(tradeID int64, existing []model.TradeImage, uploads []UploadedImage) ([]model.TradeImage, error) {
	if len(existing)+len(uploads) > config.Cfg.MaxImagesPerTrade {
		return nil, fmt.Errorf("%w: trade already has %d of %d images",
			ErrImageLimitExceeded, len(existing), config.Cfg.MaxImagesPerTrade)
	}

	rows := make([]model.TradeImage, 0, len(uploads))
	for _, up := range uploads {
		rows = append(rows, model.TradeImage{
			TradeID:      tradeID,
			Filename:     up.Filename,
			OriginalName: up.OriginalName,
			FileSize:     up.FileSize,
			MimeType:     up.MimeType,
		})
	}
	return model.AddImages(s.db, tradeID, rows)
}

// DeleteImage removes one attachment. The image must belong to a trade the
// user owns; otherwise ErrImageNotFound is returned without leaking whether
// the id exists.
func (s *tradeServiceImpl) DeleteImage(userID, tradeID, imageID int64) (*model.Trade, error) {
	if _, err := model.GetTradeByID(s.db, userID, tradeID); err != nil {
		return nil, err
	}
	img, err := model.GetImageByID(s.db, imageID)
	if err != nil {
		return nil, err
	}
	if img.TradeID != tradeID {
		return nil, model.ErrImageNotFound
	}
	if _, err := model.DeleteImage(s.db, imageID); err != nil {
		return nil, err
	}
	s.removeImageFile(img.Filename)
	return model.GetTradeByID(s.db, userID, tradeID)
}

func (s *tradeServiceImpl) DeleteAllImages(userID, tradeID int64) (*model.Trade, error) {
	if _, err := model.GetTradeByID(s.db, userID, tradeID); err != nil {
		return nil, err
	}
	removed, err := model.DeleteAllImages(s.db, tradeID)
	if err != nil {
		return nil, err
	}
	for _, img := range removed {
		s.removeImageFile(img.Filename)
	}
	return model.GetTradeByID(s.db, userID, tradeID)
}

func (s *tradeServiceImpl) GetUniqueSymbols(userID int64) ([]string, error) {
	return model.GetUniqueSymbols(s.db, userID)
}

// removeImageFile unlinks a stored upload. A missing file is not an error;
// the database row is the source of truth.
func (s *tradeServiceImpl) removeImageFile(filename string) {
	path := filepath.Join(config.Cfg.UploadDir, filename)
	if err := utils.DeleteFileIfExists(path); err != nil {
		logger.L.Warn("failed to remove image file", "path", path, "error", err)
	}
}
