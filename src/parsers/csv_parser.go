package parsers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/username/tradelog/backend/src/models"
	"github.com/username/tradelog/backend/src/security/validation"
	"github.com/username/tradelog/backend/src/utils"
)

// Journal CSV line format:
//
//	entry_date;symbol;trade_type;entry_price;exit_price;quantity;commission;notes
//
// The notes column is optional; there is no exit-date column. A row that
// carries an exit price is treated as closed on its entry date.
const (
	csvDelimiter    = ";"
	expectedColumns = 8
)

var (
	ErrEmptyCSV   = errors.New("csv input is empty")
	ErrNoDataRows = errors.New("csv contains no data rows")
)

// headerKeywords flag the first line as a header row when any of them appears
// in it, case-insensitively. Spanish and English spellings both occur in the
// files users export.
var headerKeywords = []string{"fecha", "date", "symbol", "tipo"}

type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// parseNumber treats empty/whitespace-only input as absent and accepts a
// comma as the decimal separator. Non-numeric input yields nil, not zero.
func parseNumber(value string) *float64 {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	normalized := strings.Replace(s, ",", ".", 1)
	num, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return nil
	}
	return &num
}

// ParseLine turns one raw data line into exactly one result: a validated
// candidate or a failure carrying every violated rule for that line.
func (p *CSVParser) ParseLine(line string, lineNumber int) (*models.ParsedLine, *models.ParseFailure) {
	parts := strings.Split(line, csvDelimiter)

	// The notes column may be missing entirely.
	if len(parts) < expectedColumns-1 {
		return nil, &models.ParseFailure{
			LineNumber: lineNumber,
			Error:      fmt.Sprintf("expected %d columns, found %d", expectedColumns, len(parts)),
			Raw:        line,
		}
	}

	dateStr := parts[0]
	symbol := strings.ToUpper(strings.TrimSpace(parts[1]))
	tradeType := strings.ToUpper(strings.TrimSpace(parts[2]))
	entryPrice := parseNumber(parts[3])
	exitPrice := parseNumber(parts[4])
	quantity := parseNumber(parts[5])

	// Commission is the one field with fallback-to-default semantics.
	commission := 0.0
	if c := parseNumber(parts[6]); c != nil {
		commission = *c
	}

	candidate := models.TradeCandidate{
		Symbol:     symbol,
		TradeType:  tradeType,
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   quantity,
		Commission: commission,
	}

	if entryDate, ok := utils.ParseFlexibleDate(dateStr); ok {
		candidate.EntryDate = &entryDate
	}

	if len(parts) >= expectedColumns {
		notes := strings.TrimSpace(validation.StripUnprintable(parts[7]))
		if notes != "" {
			candidate.Notes = &notes
		}
	}

	// The row format has no exit-date column: a positive exit price closes
	// the trade on its entry date.
	if candidate.ExitPrice != nil && *candidate.ExitPrice > 0 {
		candidate.ExitDate = candidate.EntryDate
	}

	if violations := validation.ValidateCandidate(&candidate); len(violations) > 0 {
		return nil, &models.ParseFailure{
			LineNumber: lineNumber,
			Error:      strings.Join(violations, ", "),
			Raw:        line,
		}
	}

	return &models.ParsedLine{
		LineNumber: lineNumber,
		Data:       candidate,
		Raw:        line,
	}, nil
}

// Parse splits raw CSV text into data lines, drives ParseLine over each and
// aggregates the outcomes. It has no side effects; both the preview and the
// import path start here.
func (p *CSVParser) Parse(csvData string) (*models.ParseReport, error) {
	var lines []string
	for _, line := range strings.Split(csvData, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return nil, ErrEmptyCSV
	}

	hasHeader := isHeaderLine(lines[0])
	dataLines := lines
	if hasHeader {
		dataLines = lines[1:]
	}

	if len(dataLines) == 0 {
		return nil, ErrNoDataRows
	}

	report := &models.ParseReport{
		Valid:      []models.ParsedLine{},
		Errors:     []models.ParseFailure{},
		TotalLines: len(dataLines),
	}

	for i, line := range dataLines {
		// Line numbers are 1-based and point at the original input line,
		// so the first data line is 2 when a header was present.
		lineNumber := i + 1
		if hasHeader {
			lineNumber++
		}

		parsed, failure := p.ParseLine(line, lineNumber)
		if failure != nil {
			report.Errors = append(report.Errors, *failure)
		} else {
			report.Valid = append(report.Valid, *parsed)
		}
	}

	return report, nil
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	for _, keyword := range headerKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
