package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Holding one connection while asking for another forces the pool to open a
// second physical connection, so this verifies the pragma reaches every
// connection rather than only the first one opened.
func TestForeignKeysEnabledOnEveryPooledConnection(t *testing.T) {
	InitDB(filepath.Join(t.TempDir(), "pool.db"))
	ctx := context.Background()

	first, err := DB.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()

	second, err := DB.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var enabled int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
		assert.Equal(t, 1, enabled)
	}
}

func TestImageCascadeHoldsOnSecondConnection(t *testing.T) {
	InitDB(filepath.Join(t.TempDir(), "cascade.db"))
	ctx := context.Background()

	_, err := DB.Exec(`INSERT INTO users (username, password, email, is_email_verified) VALUES ('tester', 'x', 'tester@example.com', TRUE)`)
	require.NoError(t, err)
	res, err := DB.Exec(`INSERT INTO trades (user_id, symbol, trade_type, entry_price, quantity, entry_date) VALUES (1, 'BTCUSDT', 'LONG', 100, 1, '2024-01-15T00:00:00Z')`)
	require.NoError(t, err)
	tradeID, err := res.LastInsertId()
	require.NoError(t, err)
	_, err = DB.Exec(`INSERT INTO trade_images (trade_id, filename, original_name, file_size, mime_type) VALUES (?, 'a.png', 'a.png', 10, 'image/png')`, tradeID)
	require.NoError(t, err)

	// Pin the first pooled connection so the delete runs on a fresh one.
	pinned, err := DB.Conn(ctx)
	require.NoError(t, err)
	defer pinned.Close()

	fresh, err := DB.Conn(ctx)
	require.NoError(t, err)
	defer fresh.Close()

	_, err = fresh.ExecContext(ctx, "DELETE FROM trades WHERE id = ?", tradeID)
	require.NoError(t, err)

	var count int
	require.NoError(t, DB.QueryRow("SELECT COUNT(*) FROM trade_images WHERE trade_id = ?", tradeID).Scan(&count))
	assert.Equal(t, 0, count)
}
