package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/username/tradelog/backend/src/models"
)

func validCandidate() models.TradeCandidate {
	entryDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	entryPrice := 42000.50
	quantity := 0.5
	return models.TradeCandidate{
		EntryDate:  &entryDate,
		Symbol:     "BTCUSDT",
		TradeType:  models.TradeTypeLong,
		EntryPrice: &entryPrice,
		Quantity:   &quantity,
	}
}

func TestValidateCandidateAccepts(t *testing.T) {
	c := validCandidate()
	assert.Empty(t, ValidateCandidate(&c))
}

func TestValidateCandidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.TradeCandidate)
		message string
	}{
		{
			name:    "missing entry date",
			mutate:  func(c *models.TradeCandidate) { c.EntryDate = nil },
			message: "entry date is required",
		},
		{
			name:    "missing symbol",
			mutate:  func(c *models.TradeCandidate) { c.Symbol = "" },
			message: "symbol is required",
		},
		{
			name:    "symbol too long",
			mutate:  func(c *models.TradeCandidate) { c.Symbol = strings.Repeat("X", models.MaxSymbolLength+1) },
			message: "symbol cannot be longer than",
		},
		{
			name:    "missing trade type",
			mutate:  func(c *models.TradeCandidate) { c.TradeType = "" },
			message: "trade type is required",
		},
		{
			name:    "unknown trade type",
			mutate:  func(c *models.TradeCandidate) { c.TradeType = "HOLD" },
			message: "trade type must be LONG or SHORT",
		},
		{
			name:    "missing entry price",
			mutate:  func(c *models.TradeCandidate) { c.EntryPrice = nil },
			message: "entry price is required",
		},
		{
			name: "non-positive entry price",
			mutate: func(c *models.TradeCandidate) {
				zero := 0.0
				c.EntryPrice = &zero
			},
			message: "entry price must be positive",
		},
		{
			name: "non-positive exit price",
			mutate: func(c *models.TradeCandidate) {
				neg := -1.0
				c.ExitPrice = &neg
			},
			message: "exit price must be positive",
		},
		{
			name:    "missing quantity",
			mutate:  func(c *models.TradeCandidate) { c.Quantity = nil },
			message: "quantity is required",
		},
		{
			name:    "negative commission",
			mutate:  func(c *models.TradeCandidate) { c.Commission = -0.5 },
			message: "commission cannot be negative",
		},
		{
			name: "notes too long",
			mutate: func(c *models.TradeCandidate) {
				long := strings.Repeat("n", models.MaxNotesLength+1)
				c.Notes = &long
			},
			message: "notes cannot exceed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)
			violations := ValidateCandidate(&c)
			assert.NotEmpty(t, violations)
			found := false
			for _, v := range violations {
				if strings.Contains(v, tt.message) {
					found = true
				}
			}
			assert.True(t, found, "expected a violation containing %q, got %v", tt.message, violations)
		})
	}
}

func TestValidateCandidateReportsAllViolationsAtOnce(t *testing.T) {
	c := models.TradeCandidate{Commission: -1}
	violations := ValidateCandidate(&c)
	assert.GreaterOrEqual(t, len(violations), 5)
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "clean text", StripUnprintable("clean\x00 text\x1b"))
	assert.Equal(t, "ok", StripUnprintable("ok"))
}
