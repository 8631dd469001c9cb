package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/username/tradelog/backend/src/config"
	"github.com/username/tradelog/backend/src/logger"
	"github.com/username/tradelog/backend/src/model"
	"github.com/username/tradelog/backend/src/security/validation"
	"github.com/username/tradelog/backend/src/services"
	"github.com/username/tradelog/backend/src/utils"
)

type ImageHandler struct {
	tradeService services.TradeService
}

func NewImageHandler(tradeService services.TradeService) *ImageHandler {
	return &ImageHandler{tradeService: tradeService}
}

// storeUpload validates one multipart file and writes it into the upload
// directory under a generated name. The caller owns cleanup on failure.
func storeUpload(fileHeader *multipart.FileHeader) (*services.UploadedImage, error) {
	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		return nil, fmt.Errorf("file '%s' too large, max %d MB",
			fileHeader.Filename, config.Cfg.MaxUploadSizeBytes/(1024*1024))
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateImageUpload(fileHeader.Filename, clientContentType); err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file '%s'", fileHeader.Filename)
	}
	defer file.Close()

	detectedType, err := validation.ValidateImageContentByMagicBytes(file)
	if err != nil {
		return nil, err
	}

	storedName := utils.GenerateUniqueFilename(fileHeader.Filename)
	destPath := filepath.Join(config.Cfg.UploadDir, storedName)
	dest, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	defer dest.Close()

	written, err := io.Copy(dest, file)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	return &services.UploadedImage{
		Filename:     storedName,
		OriginalName: fileHeader.Filename,
		FileSize:     written,
		MimeType:     detectedType,
	}, nil
}

func cleanupUploads(uploads []services.UploadedImage) {
	for _, up := range uploads {
		path := filepath.Join(config.Cfg.UploadDir, up.Filename)
		if err := utils.DeleteFileIfExists(path); err != nil {
			logger.L.Warn("Failed to clean up stored upload", "path", path, "error", err)
		}
	}
}

// collectUploads stores every file in the 'images' field. On any failure the
// files stored so far are removed, keeping the request atomic.
func collectUploads(r *http.Request) ([]services.UploadedImage, error) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to parse form or request too large (max %d MB)",
			config.Cfg.MaxUploadSizeBytes/(1024*1024))
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["images"]) == 0 {
		return nil, fmt.Errorf("no files found, ensure 'images' field is used")
	}

	fileHeaders := r.MultipartForm.File["images"]
	uploads := make([]services.UploadedImage, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		up, err := storeUpload(fh)
		if err != nil {
			cleanupUploads(uploads)
			return nil, err
		}
		uploads = append(uploads, *up)
	}
	return uploads, nil
}

func (h *ImageHandler) HandleUploadImages(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	tradeID, err := tradeIDFromPath(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid trade ID", http.StatusBadRequest)
		return
	}

	uploads, err := collectUploads(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	trade, err := h.tradeService.AddImages(userID, tradeID, uploads)
	if err != nil {
		cleanupUploads(uploads)
		switch {
		case errors.Is(err, model.ErrTradeNotFound):
			utils.SendJSONError(w, "Trade not found", http.StatusNotFound)
		case errors.Is(err, services.ErrImageLimitExceeded):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			logger.L.Error("Failed to attach images", "userID", userID, "tradeID", tradeID, "error", err)
			utils.SendJSONError(w, "Failed to attach images", http.StatusInternalServerError)
		}
		return
	}

	logger.L.Info("Images attached to trade", "userID", userID, "tradeID", tradeID, "count", len(uploads))
	utils.WriteJSON(w, http.StatusCreated, trade)
}

func (h *ImageHandler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	tradeID, err := tradeIDFromPath(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid trade ID", http.StatusBadRequest)
		return
	}
	imageID, err := strconv.ParseInt(r.PathValue("imageID"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid image ID", http.StatusBadRequest)
		return
	}

	trade, err := h.tradeService.DeleteImage(userID, tradeID, imageID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTradeNotFound):
			utils.SendJSONError(w, "Trade not found", http.StatusNotFound)
		case errors.Is(err, model.ErrImageNotFound):
			utils.SendJSONError(w, "Image not found", http.StatusNotFound)
		default:
			logger.L.Error("Failed to delete image", "userID", userID, "tradeID", tradeID, "imageID", imageID, "error", err)
			utils.SendJSONError(w, "Failed to delete image", http.StatusInternalServerError)
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, trade)
}

func (h *ImageHandler) HandleDeleteAllImages(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	tradeID, err := tradeIDFromPath(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid trade ID", http.StatusBadRequest)
		return
	}

	trade, err := h.tradeService.DeleteAllImages(userID, tradeID)
	if err != nil {
		if errors.Is(err, model.ErrTradeNotFound) {
			utils.SendJSONError(w, "Trade not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to delete images", "userID", userID, "tradeID", tradeID, "error", err)
		utils.SendJSONError(w, "Failed to delete images", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, trade)
}
