package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/username/tradelog/backend/src/logger"
	"github.com/username/tradelog/backend/src/services"
	"github.com/username/tradelog/backend/src/utils"
)

const (
	defaultDailyPnLDays  = 30
	maxDailyPnLDays      = 365
	defaultTopTradeCount = 5
	maxTopTradeCount     = 50
)

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// writeWithETag answers 304 when the client already holds the current
// payload, otherwise the payload with its ETag.
func writeWithETag(w http.ResponseWriter, r *http.Request, payload interface{}) {
	etag, err := utils.GenerateETag(payload)
	if err == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	utils.WriteJSON(w, http.StatusOK, payload)
}

func (h *StatsHandler) HandleGetGeneralStats(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.statsService.GetGeneralStats(userID)
	if err != nil {
		logger.L.Error("Failed to compute general stats", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeWithETag(w, r, stats)
}

func (h *StatsHandler) HandleGetStatsBySymbol(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.statsService.GetStatsBySymbol(userID)
	if err != nil {
		logger.L.Error("Failed to compute symbol stats", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeWithETag(w, r, stats)
}

func (h *StatsHandler) HandleGetStatsByDateRange(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		utils.SendJSONError(w, "Both 'from' and 'to' query parameters are required", http.StatusBadRequest)
		return
	}
	from, ok := utils.ParseFlexibleDate(fromStr)
	if !ok {
		utils.SendJSONError(w, "'from' is not a valid date", http.StatusBadRequest)
		return
	}
	to, ok := utils.ParseFlexibleDate(toStr)
	if !ok {
		utils.SendJSONError(w, "'to' is not a valid date", http.StatusBadRequest)
		return
	}
	if to.Before(from) {
		utils.SendJSONError(w, "'to' must not be before 'from'", http.StatusBadRequest)
		return
	}

	stats, err := h.statsService.GetStatsByDateRange(userID, from, to)
	if err != nil {
		logger.L.Error("Failed to compute date-range stats", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeWithETag(w, r, stats)
}

func (h *StatsHandler) HandleGetDailyPnL(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	days := defaultDailyPnLDays
	if v := r.URL.Query().Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 1 || days > maxDailyPnLDays {
			utils.SendJSONError(w, fmt.Sprintf("days must be between 1 and %d", maxDailyPnLDays), http.StatusBadRequest)
			return
		}
	}

	points, err := h.statsService.GetDailyPnL(userID, days)
	if err != nil {
		logger.L.Error("Failed to compute daily pnl", "userID", userID, "days", days, "error", err)
		utils.SendJSONError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeWithETag(w, r, points)
}

func (h *StatsHandler) HandleGetStatsByTradeType(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.statsService.GetStatsByTradeType(userID)
	if err != nil {
		logger.L.Error("Failed to compute trade type stats", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeWithETag(w, r, stats)
}

func (h *StatsHandler) HandleGetTopTrades(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := defaultTopTradeCount
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxTopTradeCount {
			utils.SendJSONError(w, fmt.Sprintf("limit must be between 1 and %d", maxTopTradeCount), http.StatusBadRequest)
			return
		}
	}

	trades, err := h.statsService.GetTopTrades(userID, limit)
	if err != nil {
		logger.L.Error("Failed to compute top trades", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeWithETag(w, r, trades)
}
