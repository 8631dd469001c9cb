package parsers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineValidRow(t *testing.T) {
	p := NewCSVParser()

	parsed, failure := p.ParseLine("2024-01-15;btcusdt;long;42000,50;45000;0.5;10;great setup", 1)
	require.Nil(t, failure)
	require.NotNil(t, parsed)

	c := parsed.Data
	assert.Equal(t, "BTCUSDT", c.Symbol)
	assert.Equal(t, "LONG", c.TradeType)
	require.NotNil(t, c.EntryPrice)
	assert.Equal(t, 42000.50, *c.EntryPrice)
	require.NotNil(t, c.ExitPrice)
	assert.Equal(t, 45000.0, *c.ExitPrice)
	require.NotNil(t, c.Quantity)
	assert.Equal(t, 0.5, *c.Quantity)
	assert.Equal(t, 10.0, c.Commission)
	require.NotNil(t, c.Notes)
	assert.Equal(t, "great setup", *c.Notes)

	require.NotNil(t, c.EntryDate)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *c.EntryDate)
	// A row with an exit price closes on its entry date.
	require.NotNil(t, c.ExitDate)
	assert.Equal(t, *c.EntryDate, *c.ExitDate)
}

func TestParseLineOpenTradeWithoutNotes(t *testing.T) {
	p := NewCSVParser()

	parsed, failure := p.ParseLine("2024-02-01;ETHUSDT;SHORT;2500;;2;1.5", 1)
	require.Nil(t, failure)
	require.NotNil(t, parsed)

	assert.Nil(t, parsed.Data.ExitPrice)
	assert.Nil(t, parsed.Data.ExitDate)
	assert.Nil(t, parsed.Data.Notes)
}

func TestParseLineInvalidTradeType(t *testing.T) {
	p := NewCSVParser()

	parsed, failure := p.ParseLine("2024-01-15;BTCUSDT;WRONG;42000;45000;0.5;10;", 3)
	assert.Nil(t, parsed)
	require.NotNil(t, failure)
	assert.Equal(t, 3, failure.LineNumber)
	assert.Contains(t, failure.Error, "trade type must be LONG or SHORT")
}

func TestParseLineCollectsAllViolations(t *testing.T) {
	p := NewCSVParser()

	_, failure := p.ParseLine("not-a-date;;WRONG;abc;;xyz;-5;", 1)
	require.NotNil(t, failure)
	assert.Contains(t, failure.Error, "entry date is required")
	assert.Contains(t, failure.Error, "symbol is required")
	assert.Contains(t, failure.Error, "trade type must be LONG or SHORT")
	assert.Contains(t, failure.Error, "entry price is required")
	assert.Contains(t, failure.Error, "quantity is required")
	assert.Contains(t, failure.Error, "commission cannot be negative")
}

func TestParseLineTooFewColumns(t *testing.T) {
	p := NewCSVParser()

	parsed, failure := p.ParseLine("2024-01-15;BTCUSDT;LONG", 2)
	assert.Nil(t, parsed)
	require.NotNil(t, failure)
	assert.Equal(t, "expected 8 columns, found 3", failure.Error)
}

func TestParseLineMissingCommissionDefaultsToZero(t *testing.T) {
	p := NewCSVParser()

	parsed, failure := p.ParseLine("2024-01-15;BTCUSDT;LONG;42000;45000;0.5;;", 1)
	require.Nil(t, failure)
	assert.Equal(t, 0.0, parsed.Data.Commission)
}

func TestParseDetectsHeaderRow(t *testing.T) {
	p := NewCSVParser()
	csv := strings.Join([]string{
		"Fecha;Symbol;Tipo;Entrada;Salida;Cantidad;Comision;Notas",
		"2024-01-15;BTCUSDT;LONG;42000;45000;0.5;10;",
		"2024-01-16;ETHUSDT;SHORT;2500;;2;1;",
	}, "\n")

	report, err := p.Parse(csv)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalLines)
	require.Len(t, report.Valid, 2)
	assert.Empty(t, report.Errors)

	// With a header, data line numbers start at 2 so they match the file.
	assert.Equal(t, 2, report.Valid[0].LineNumber)
	assert.Equal(t, 3, report.Valid[1].LineNumber)
}

func TestParseWithoutHeaderStartsAtLineOne(t *testing.T) {
	p := NewCSVParser()

	report, err := p.Parse("2024-01-15;BTCUSDT;LONG;42000;45000;0.5;10;\n2024-01-16;ETHUSDT;SHORT;2500;;2;1;")
	require.NoError(t, err)
	require.Len(t, report.Valid, 2)
	assert.Equal(t, 1, report.Valid[0].LineNumber)
	assert.Equal(t, 2, report.Valid[1].LineNumber)
}

func TestParseMixedValidAndInvalidLines(t *testing.T) {
	p := NewCSVParser()
	csv := strings.Join([]string{
		"2024-01-15;BTCUSDT;LONG;42000;45000;0.5;10;",
		"2024-01-16;ETHUSDT;HOLD;2500;;2;1;",
		"2024-01-17;SOLUSDT;SHORT;95,25;90;10;0.5;scalp",
	}, "\n")

	report, err := p.Parse(csv)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalLines)
	assert.Len(t, report.Valid, 2)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].LineNumber)
}

func TestParseEmptyInput(t *testing.T) {
	p := NewCSVParser()

	_, err := p.Parse("")
	assert.ErrorIs(t, err, ErrEmptyCSV)

	_, err = p.Parse("   \n \n")
	assert.ErrorIs(t, err, ErrEmptyCSV)
}

func TestParseHeaderOnly(t *testing.T) {
	p := NewCSVParser()

	_, err := p.Parse("Date;Symbol;Type;Entry;Exit;Qty;Fee;Notes")
	assert.ErrorIs(t, err, ErrNoDataRows)
}

func TestParseSkipsBlankLines(t *testing.T) {
	p := NewCSVParser()

	report, err := p.Parse("\n2024-01-15;BTCUSDT;LONG;42000;45000;0.5;10;\n\n")
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalLines)
	assert.Len(t, report.Valid, 1)
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"42000,50", ptr(42000.50)},
		{"42000.50", ptr(42000.50)},
		{" 10 ", ptr(10.0)},
		{"", nil},
		{"   ", nil},
		{"abc", nil},
	}
	for _, tc := range cases {
		got := parseNumber(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "input %q", tc.in)
		} else {
			require.NotNil(t, got, "input %q", tc.in)
			assert.Equal(t, *tc.want, *got, "input %q", tc.in)
		}
	}
}

func ptr(f float64) *float64 { return &f }
