package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/mixd/internal/db"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestAppendAndQuery(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.Append(EventConnectAttempt, "s1", map[string]any{"attempt": 1}))
	require.NoError(t, l.Append(EventConnectFailed, "s1", map[string]any{"error": "not found"}))
	require.NoError(t, l.Append(EventConnected, "s2", nil))

	entries, err := l.GetBySession("s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EventConnectAttempt, entries[0].EventType)
	assert.Equal(t, float64(1), entries[0].Payload["attempt"])
	assert.Equal(t, "not found", entries[1].Payload["error"])

	connected, err := l.GetByType(EventConnected, 10)
	require.NoError(t, err)
	require.Len(t, connected, 1)
	assert.Equal(t, "s2", connected[0].SessionID)
	assert.Nil(t, connected[0].Payload)

	recent, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, EventConnected, recent[0].EventType)
}

func TestDeleteOlderThan(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.db.Exec(
		`INSERT INTO event_ledger (event_type, timestamp, session_id, payload) VALUES (?, ?, ?, ?)`,
		string(EventRawCommand), time.Now().Add(-48*time.Hour).Unix(), "old", "",
	)
	require.NoError(t, err)
	require.NoError(t, l.Append(EventRawCommand, "new", nil))

	n, err := l.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].SessionID)
}
