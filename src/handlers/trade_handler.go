package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/tradelog/backend/src/logger"
	"github.com/username/tradelog/backend/src/model"
	"github.com/username/tradelog/backend/src/models"
	"github.com/username/tradelog/backend/src/security/validation"
	"github.com/username/tradelog/backend/src/services"
	"github.com/username/tradelog/backend/src/utils"
)

type TradeHandler struct {
	tradeService services.TradeService
}

func NewTradeHandler(tradeService services.TradeService) *TradeHandler {
	return &TradeHandler{tradeService: tradeService}
}

// parseListOptions validates every query parameter of GET /api/trades.
// Unknown sort fields and malformed values are rejected rather than
// silently defaulted.
func parseListOptions(r *http.Request) (models.TradeListOptions, error) {
	opts := models.DefaultTradeListOptions()
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return opts, fmt.Errorf("page must be a positive integer")
		}
		opts.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > models.MaxLimit {
			return opts, fmt.Errorf("limit must be between 1 and %d", models.MaxLimit)
		}
		opts.Limit = limit
	}
	if v := q.Get("sortBy"); v != "" {
		if !models.SortableTradeFields[v] {
			return opts, fmt.Errorf("cannot sort by field %q", v)
		}
		opts.SortBy = v
	}
	if v := q.Get("sortDir"); v != "" {
		dir := strings.ToUpper(v)
		if !models.IsValidSortDir(dir) {
			return opts, fmt.Errorf("sortDir must be asc or desc")
		}
		opts.SortDir = dir
	}
	if v := q.Get("status"); v != "" {
		status := strings.ToUpper(v)
		if !models.IsValidTradeStatus(status) {
			return opts, fmt.Errorf("status must be OPEN or CLOSED")
		}
		opts.Status = status
	}
	if v := q.Get("trade_type"); v != "" {
		tradeType := strings.ToUpper(v)
		if !models.IsValidTradeType(tradeType) {
			return opts, fmt.Errorf("trade_type must be LONG or SHORT")
		}
		opts.TradeType = tradeType
	}
	if v := q.Get("symbol"); v != "" {
		opts.Symbol = strings.ToUpper(strings.TrimSpace(v))
	}
	if v := q.Get("dateFrom"); v != "" {
		t, ok := utils.ParseFlexibleDate(v)
		if !ok {
			return opts, fmt.Errorf("dateFrom is not a valid date")
		}
		opts.DateFrom = &t
	}
	if v := q.Get("dateTo"); v != "" {
		t, ok := utils.ParseFlexibleDate(v)
		if !ok {
			return opts, fmt.Errorf("dateTo is not a valid date")
		}
		opts.DateTo = &t
	}
	return opts, nil
}

func (h *TradeHandler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	list, err := h.tradeService.ListTrades(userID, opts)
	if err != nil {
		logger.L.Error("Failed to list trades", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func tradeIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *TradeHandler) HandleGetTrade(w http.ResponseWriter, r *http.Request) {
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

	trade, err := h.tradeService.GetTrade(userID, tradeID)
	if err != nil {
		if errors.Is(err, model.ErrTradeNotFound) {
			utils.SendJSONError(w, "Trade not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to get trade", "userID", userID, "tradeID", tradeID, "error", err)
		utils.SendJSONError(w, "Failed to get trade", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, trade)
}

// tradePayload is the JSON create body. Dates come in as strings so the
// same flexible formats the CSV importer accepts work here too.
type tradePayload struct {
	Symbol     string   `json:"symbol"`
	TradeType  string   `json:"trade_type"`
	EntryPrice *float64 `json:"entry_price"`
	ExitPrice  *float64 `json:"exit_price"`
	Quantity   *float64 `json:"quantity"`
	EntryDate  string   `json:"entry_date"`
	ExitDate   string   `json:"exit_date"`
	Commission *float64 `json:"commission"`
	Notes      *string  `json:"notes"`
}

func (p *tradePayload) toCandidate() (models.TradeCandidate, []string) {
	var problems []string
	candidate := models.TradeCandidate{
		Symbol:     strings.ToUpper(strings.TrimSpace(p.Symbol)),
		TradeType:  strings.ToUpper(strings.TrimSpace(p.TradeType)),
		EntryPrice: p.EntryPrice,
		ExitPrice:  p.ExitPrice,
		Quantity:   p.Quantity,
	}
	if p.Commission != nil {
		candidate.Commission = *p.Commission
	}
	if p.Notes != nil {
		trimmed := strings.TrimSpace(validation.StripUnprintable(*p.Notes))
		if trimmed != "" {
			candidate.Notes = &trimmed
		}
	}
	if p.EntryDate != "" {
		if t, ok := utils.ParseFlexibleDate(p.EntryDate); ok {
			candidate.EntryDate = &t
		} else {
			problems = append(problems, "entry date is not a valid date")
		}
	}
	if p.ExitDate != "" {
		if t, ok := utils.ParseFlexibleDate(p.ExitDate); ok {
			candidate.ExitDate = &t
		} else {
			problems = append(problems, "exit date is not a valid date")
		}
	}

	problems = append(problems, validation.ValidateCandidate(&candidate)...)
	return candidate, problems
}

func (h *TradeHandler) HandleCreateTrade(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload tradePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	candidate, problems := payload.toCandidate()
	if len(problems) > 0 {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  validation.ErrValidationFailed.Error(),
			"errors": problems,
		})
		return
	}

	trade, err := h.tradeService.CreateTrade(userID, candidate, nil)
	if err != nil {
		logger.L.Error("Failed to create trade", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to create trade", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, trade)
}

// parseTradeUpdate decodes a partial update body. A key that is present
// with a null value clears the field where clearing is meaningful; a key
// that is absent leaves the field untouched.
func parseTradeUpdate(body map[string]json.RawMessage) (model.TradeUpdate, []string) {
	var update model.TradeUpdate
	var problems []string

	unmarshal := func(key string, dest interface{}) bool {
		raw, ok := body[key]
		if !ok || string(raw) == "null" {
			return false
		}
		if err := json.Unmarshal(raw, dest); err != nil {
			problems = append(problems, fmt.Sprintf("%s is invalid", key))
			return false
		}
		return true
	}

	var symbol string
	if unmarshal("symbol", &symbol) {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || len(symbol) > models.MaxSymbolLength {
			problems = append(problems, fmt.Sprintf("symbol must be 1 to %d characters", models.MaxSymbolLength))
		} else {
			update.Symbol = &symbol
		}
	}
	var tradeType string
	if unmarshal("trade_type", &tradeType) {
		tradeType = strings.ToUpper(strings.TrimSpace(tradeType))
		if !models.IsValidTradeType(tradeType) {
			problems = append(problems, "trade type must be LONG or SHORT")
		} else {
			update.TradeType = &tradeType
		}
	}
	var entryPrice float64
	if unmarshal("entry_price", &entryPrice) {
		if entryPrice <= 0 {
			problems = append(problems, "entry price must be greater than zero")
		} else {
			update.EntryPrice = &entryPrice
		}
	}
	if raw, ok := body["exit_price"]; ok {
		if string(raw) == "null" {
			update.ClearExitPrice = true
		} else {
			var exitPrice float64
			if err := json.Unmarshal(raw, &exitPrice); err != nil || exitPrice <= 0 {
				problems = append(problems, "exit price must be greater than zero")
			} else {
				update.ExitPrice = &exitPrice
			}
		}
	}
	var quantity float64
	if unmarshal("quantity", &quantity) {
		if quantity <= 0 {
			problems = append(problems, "quantity must be greater than zero")
		} else {
			update.Quantity = &quantity
		}
	}
	var commission float64
	if unmarshal("commission", &commission) {
		if commission < 0 {
			problems = append(problems, "commission cannot be negative")
		} else {
			update.Commission = &commission
		}
	}
	var entryDate string
	if unmarshal("entry_date", &entryDate) {
		if t, ok := utils.ParseFlexibleDate(entryDate); ok {
			update.EntryDate = &t
		} else {
			problems = append(problems, "entry date is not a valid date")
		}
	}
	if raw, ok := body["exit_date"]; ok {
		if string(raw) == "null" {
			update.ClearExitDate = true
		} else {
			var exitDate string
			if err := json.Unmarshal(raw, &exitDate); err != nil {
				problems = append(problems, "exit date is not a valid date")
			} else if t, ok := utils.ParseFlexibleDate(exitDate); ok {
				update.ExitDate = &t
			} else {
				problems = append(problems, "exit date is not a valid date")
			}
		}
	}
	var notes string
	if unmarshal("notes", &notes) {
		trimmed := strings.TrimSpace(validation.StripUnprintable(notes))
		if len(trimmed) > models.MaxNotesLength {
			problems = append(problems, fmt.Sprintf("notes cannot exceed %d characters", models.MaxNotesLength))
		} else {
			update.Notes = &trimmed
		}
	}

	return update, problems
}

func (h *TradeHandler) HandleUpdateTrade(w http.ResponseWriter, r *http.Request) {
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

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	update, problems := parseTradeUpdate(body)
	if len(problems) > 0 {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  validation.ErrValidationFailed.Error(),
			"errors": problems,
		})
		return
	}

	trade, err := h.tradeService.UpdateTrade(userID, tradeID, update)
	if err != nil {
		if errors.Is(err, model.ErrTradeNotFound) {
			utils.SendJSONError(w, "Trade not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to update trade", "userID", userID, "tradeID", tradeID, "error", err)
		utils.SendJSONError(w, "Failed to update trade", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, trade)
}

func (h *TradeHandler) HandleDeleteTrade(w http.ResponseWriter, r *http.Request) {
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

	permanent := r.URL.Query().Get("permanent") == "true"
	if err := h.tradeService.DeleteTrade(userID, tradeID, permanent); err != nil {
		if errors.Is(err, model.ErrTradeNotFound) {
			utils.SendJSONError(w, "Trade not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to delete trade", "userID", userID, "tradeID", tradeID, "permanent", permanent, "error", err)
		utils.SendJSONError(w, "Failed to delete trade", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TradeHandler) HandleGetSymbols(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	symbols, err := h.tradeService.GetUniqueSymbols(userID)
	if err != nil {
		logger.L.Error("Failed to get symbols", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to get symbols", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"symbols": symbols})
}
