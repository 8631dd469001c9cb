package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradelog/backend/src/config"
)

func withTestConfig(t *testing.T) {
	t.Helper()
	prev := config.Cfg
	config.Cfg = &config.AppConfig{MaxUploadSizeBytes: 5 * 1024 * 1024}
	t.Cleanup(func() { config.Cfg = prev })
}

func TestReadCSVBodyFromJSON(t *testing.T) {
	withTestConfig(t)
	line := "2025-01-15 10:30;BTCUSDT;LONG;42000.50;43500.00;0.1;5.50;Breakout trade"
	body := `{"csvData": "` + line + `"}`
	r := httptest.NewRequest("POST", "/api/trades/import/preview", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	csvData, err := readCSVBody(r)
	require.NoError(t, err)
	assert.Equal(t, line, csvData)
}

func TestReadCSVBodyRejectsNonJSON(t *testing.T) {
	withTestConfig(t)
	r := httptest.NewRequest("POST", "/api/trades/import", strings.NewReader("date;symbol;tipo"))

	_, err := readCSVBody(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csvData")
}

func TestReadCSVBodyFromMultipartFile(t *testing.T) {
	withTestConfig(t)
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "trades.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("2024-01-15;ETHUSDT;SHORT;2500;2400;1;2;scalp\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	r := httptest.NewRequest("POST", "/api/trades/import", &buf)
	r.Header.Set("Content-Type", form.FormDataContentType())

	csvData, err := readCSVBody(r)
	require.NoError(t, err)
	assert.Contains(t, csvData, "ETHUSDT")
}
