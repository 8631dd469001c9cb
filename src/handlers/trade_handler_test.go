package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradelog/backend/src/models"
)

func TestParseListOptionsDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/trades", nil)

	opts, err := parseListOptions(r)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPage, opts.Page)
	assert.Equal(t, models.DefaultLimit, opts.Limit)
	assert.Equal(t, "entry_date", opts.SortBy)
	assert.Equal(t, models.SortDesc, opts.SortDir)
	assert.Empty(t, opts.Status)
	assert.Nil(t, opts.DateFrom)
}

func TestParseListOptionsFullQuery(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/trades?page=3&limit=50&sortBy=pnl&sortDir=asc&status=closed&trade_type=short&symbol=btcusdt&dateFrom=2024-01-01&dateTo=2024-02-01", nil)

	opts, err := parseListOptions(r)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Page)
	assert.Equal(t, 50, opts.Limit)
	assert.Equal(t, "pnl", opts.SortBy)
	assert.Equal(t, models.SortAsc, opts.SortDir)
	assert.Equal(t, models.TradeStatusClosed, opts.Status)
	assert.Equal(t, models.TradeTypeShort, opts.TradeType)
	assert.Equal(t, "BTCUSDT", opts.Symbol)
	require.NotNil(t, opts.DateFrom)
	require.NotNil(t, opts.DateTo)
	assert.True(t, opts.DateFrom.Before(*opts.DateTo))
}

func TestParseListOptionsRejections(t *testing.T) {
	cases := map[string]string{
		"zero page":         "page=0",
		"non-numeric page":  "page=abc",
		"limit too large":   "limit=101",
		"zero limit":        "limit=0",
		"unknown sort":      "sortBy=password",
		"sql in sort":       "sortBy=pnl%3BDROP%20TABLE%20trades",
		"bad direction":     "sortDir=sideways",
		"unknown status":    "status=PENDING",
		"unknown type":      "trade_type=HOLD",
		"malformed from":    "dateFrom=yesterday",
		"malformed to":      "dateTo=01/02/2024",
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/trades?"+query, nil)
			_, err := parseListOptions(r)
			assert.Error(t, err)
		})
	}
}

func rawBody(t *testing.T, jsonStr string) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(jsonStr), &body))
	return body
}

func TestParseTradeUpdatePartial(t *testing.T) {
	update, problems := parseTradeUpdate(rawBody(t, `{"exit_price": 45000, "exit_date": "2024-01-20", "notes": "took profit"}`))
	assert.Empty(t, problems)

	require.NotNil(t, update.ExitPrice)
	assert.Equal(t, 45000.0, *update.ExitPrice)
	require.NotNil(t, update.ExitDate)
	require.NotNil(t, update.Notes)
	assert.Equal(t, "took profit", *update.Notes)

	assert.Nil(t, update.Symbol)
	assert.Nil(t, update.EntryPrice)
	assert.False(t, update.ClearExitPrice)
	assert.False(t, update.ClearExitDate)
}

func TestParseTradeUpdateClearsOnNull(t *testing.T) {
	update, problems := parseTradeUpdate(rawBody(t, `{"exit_price": null, "exit_date": null}`))
	assert.Empty(t, problems)
	assert.True(t, update.ClearExitPrice)
	assert.True(t, update.ClearExitDate)
	assert.Nil(t, update.ExitPrice)
	assert.Nil(t, update.ExitDate)
}

func TestParseTradeUpdateNormalizesIdentifiers(t *testing.T) {
	update, problems := parseTradeUpdate(rawBody(t, `{"symbol": " btcusdt ", "trade_type": "short"}`))
	assert.Empty(t, problems)
	require.NotNil(t, update.Symbol)
	assert.Equal(t, "BTCUSDT", *update.Symbol)
	require.NotNil(t, update.TradeType)
	assert.Equal(t, models.TradeTypeShort, *update.TradeType)
}

func TestParseTradeUpdateValidation(t *testing.T) {
	cases := map[string]string{
		"negative entry price": `{"entry_price": -1}`,
		"zero exit price":      `{"exit_price": 0}`,
		"zero quantity":        `{"quantity": 0}`,
		"negative commission":  `{"commission": -0.5}`,
		"bad trade type":       `{"trade_type": "HOLD"}`,
		"bad entry date":       `{"entry_date": "not-a-date"}`,
		"bad exit date":        `{"exit_date": "not-a-date"}`,
		"empty symbol":         `{"symbol": "  "}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, problems := parseTradeUpdate(rawBody(t, body))
			assert.NotEmpty(t, problems)
		})
	}
}
