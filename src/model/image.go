package model

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrImageNotFound = errors.New("image not found")

// TradeImage is a screenshot attached to a trade. The row is owned by its
// trade: hard-deleting the trade cascades to these rows.
type TradeImage struct {
	ID           int64     `json:"id"`
	TradeID      int64     `json:"trade_id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	FileSize     int64     `json:"file_size"`
	MimeType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}

const imageColumns = `id, trade_id, filename, original_name, file_size, mime_type, created_at`

// AddImages inserts all image rows for one trade, or none, inside a single
// transaction, preserving input order.
func AddImages(db *sql.DB, tradeID int64, images []TradeImage) ([]TradeImage, error) {
	dbTx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`
	INSERT INTO trade_images (trade_id, filename, original_name, file_size, mime_type, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing image insert statement: %w", err)
	}
	defer stmt.Close()

	created := make([]TradeImage, 0, len(images))
	for _, img := range images {
		img.TradeID = tradeID
		img.CreatedAt = time.Now()
		res, err := stmt.Exec(img.TradeID, img.Filename, img.OriginalName, img.FileSize, img.MimeType, img.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error inserting image %s: %w", img.Filename, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("error resolving inserted image id: %w", err)
		}
		img.ID = id
		created = append(created, img)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing images: %w", err)
	}
	return created, nil
}

// GetTradeImages lists the images of one trade in upload order.
func GetTradeImages(db *sql.DB, tradeID int64) ([]TradeImage, error) {
	query := fmt.Sprintf("SELECT %s FROM trade_images WHERE trade_id = ? ORDER BY created_at, id", imageColumns)
	rows, err := db.Query(query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("error querying images for trade %d: %w", tradeID, err)
	}
	defer rows.Close()
	return collectImages(rows)
}

// GetImagesForTrades runs a single batched lookup over all given trade IDs
// and groups the rows by trade id.
func GetImagesForTrades(db *sql.DB, tradeIDs []int64) (map[int64][]TradeImage, error) {
	imagesByTrade := make(map[int64][]TradeImage)
	if len(tradeIDs) == 0 {
		return imagesByTrade, nil
	}

	placeholders := make([]string, len(tradeIDs))
	args := make([]interface{}, len(tradeIDs))
	for i, id := range tradeIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("SELECT %s FROM trade_images WHERE trade_id IN (%s) ORDER BY created_at, id",
		imageColumns, strings.Join(placeholders, ","))
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying images for trades: %w", err)
	}
	defer rows.Close()

	images, err := collectImages(rows)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		imagesByTrade[img.TradeID] = append(imagesByTrade[img.TradeID], img)
	}
	return imagesByTrade, nil
}

func collectImages(rows *sql.Rows) ([]TradeImage, error) {
	images := []TradeImage{}
	for rows.Next() {
		var img TradeImage
		if err := rows.Scan(&img.ID, &img.TradeID, &img.Filename, &img.OriginalName, &img.FileSize, &img.MimeType, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning image row: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// GetImageByID fetches a single image row.
func GetImageByID(db *sql.DB, imageID int64) (*TradeImage, error) {
	query := fmt.Sprintf("SELECT %s FROM trade_images WHERE id = ?", imageColumns)
	row := db.QueryRow(query, imageID)

	var img TradeImage
	err := row.Scan(&img.ID, &img.TradeID, &img.Filename, &img.OriginalName, &img.FileSize, &img.MimeType, &img.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("error querying image %d: %w", imageID, err)
	}
	return &img, nil
}

// DeleteImage removes one image row and returns it so the caller can unlink
// the stored file.
func DeleteImage(db *sql.DB, imageID int64) (*TradeImage, error) {
	img, err := GetImageByID(db, imageID)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`DELETE FROM trade_images WHERE id = ?`, imageID); err != nil {
		return nil, fmt.Errorf("error deleting image %d: %w", imageID, err)
	}
	return img, nil
}

// DeleteAllImages removes every image of a trade and returns the deleted rows.
func DeleteAllImages(db *sql.DB, tradeID int64) ([]TradeImage, error) {
	images, err := GetTradeImages(db, tradeID)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`DELETE FROM trade_images WHERE trade_id = ?`, tradeID); err != nil {
		return nil, fmt.Errorf("error deleting images for trade %d: %w", tradeID, err)
	}
	return images, nil
}
