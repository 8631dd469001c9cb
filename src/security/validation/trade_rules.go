package validation

import (
	"errors"
	"fmt"

	"github.com/username/tradelog/backend/src/models"
)

// ErrValidationFailed marks failures that stem from user-supplied data rather
// than infrastructure. Handlers map it to a 400 response.
var ErrValidationFailed = errors.New("validation failed")

// ValidateCandidate schema-checks one parsed trade candidate and returns one
// message per violated rule. It never stops at the first violation so a CSV
// error report can name everything wrong with a line at once.
func ValidateCandidate(c *models.TradeCandidate) []string {
	var violations []string

	if c.EntryDate == nil {
		violations = append(violations, "entry date is required and must be a valid date")
	}

	if c.Symbol == "" {
		violations = append(violations, "symbol is required")
	} else if len(c.Symbol) > models.MaxSymbolLength {
		violations = append(violations, fmt.Sprintf("symbol cannot be longer than %d characters", models.MaxSymbolLength))
	}

	if c.TradeType == "" {
		violations = append(violations, "trade type is required")
	} else if !models.IsValidTradeType(c.TradeType) {
		violations = append(violations, "trade type must be LONG or SHORT")
	}

	if c.EntryPrice == nil {
		violations = append(violations, "entry price is required")
	} else if *c.EntryPrice <= 0 {
		violations = append(violations, "entry price must be positive")
	}

	if c.ExitPrice != nil && *c.ExitPrice <= 0 {
		violations = append(violations, "exit price must be positive")
	}

	if c.Quantity == nil {
		violations = append(violations, "quantity is required")
	} else if *c.Quantity <= 0 {
		violations = append(violations, "quantity must be positive")
	}

	if c.Commission < 0 {
		violations = append(violations, "commission cannot be negative")
	}

	if c.Notes != nil && len(*c.Notes) > models.MaxNotesLength {
		violations = append(violations, fmt.Sprintf("notes cannot exceed %d characters", models.MaxNotesLength))
	}

	return violations
}
