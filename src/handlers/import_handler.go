package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/tradelog/backend/src/config"
	"github.com/username/tradelog/backend/src/logger"
	"github.com/username/tradelog/backend/src/parsers"
	"github.com/username/tradelog/backend/src/services"
	"github.com/username/tradelog/backend/src/utils"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(importService services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// readCSVBody accepts either a JSON body with a 'csvData' field or a
// multipart upload with a 'file' field.
func readCSVBody(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
			return "", fmt.Errorf("failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024))
		}
		file, fileHeader, err := r.FormFile("file")
		if err != nil {
			return "", fmt.Errorf("failed to retrieve file from request, ensure 'file' field is used")
		}
		defer file.Close()
		if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
			return "", fmt.Errorf("file too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024))
		}
		data, err := io.ReadAll(io.LimitReader(file, config.Cfg.MaxUploadSizeBytes))
		if err != nil {
			return "", fmt.Errorf("failed to read uploaded file")
		}
		return string(data), nil
	}

	var payload struct {
		CSVData string `json:"csvData"`
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, config.Cfg.MaxUploadSizeBytes))
	if err := decoder.Decode(&payload); err != nil {
		return "", fmt.Errorf("request body must be JSON with a 'csvData' field")
	}
	return payload.CSVData, nil
}

func (h *ImportHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	csvData, err := readCSVBody(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.importService.PreviewCSV(csvData)
	if err != nil {
		if errors.Is(err, parsers.ErrEmptyCSV) || errors.Is(err, parsers.ErrNoDataRows) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("CSV preview failed", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to preview CSV", http.StatusInternalServerError)
		return
	}

	logger.L.Debug("CSV preview served", "userID", userID,
		"validLines", result.Summary.ValidLines, "errorLines", result.Summary.ErrorLines)
	utils.WriteJSON(w, http.StatusOK, result)
}

// HandleImport answers 201 only when every line was persisted; a rejected
// import is a well-formed 200 carrying the per-line errors.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	csvData, err := readCSVBody(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.importService.ImportCSV(userID, csvData)
	if err != nil {
		if errors.Is(err, parsers.ErrEmptyCSV) || errors.Is(err, parsers.ErrNoDataRows) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("CSV import failed", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to import CSV", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if result.Success {
		status = http.StatusCreated
	}
	utils.WriteJSON(w, status, result)
}
