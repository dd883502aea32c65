package main

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvas_SnapshotOfUnknownRoomIsEmpty(t *testing.T) {
	c := NewCanvas()

	snap := c.Snapshot("r1")
	require.NotNil(t, snap)
	assert.Empty(t, snap)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestCanvas_AppendKeepsOrderAndUniqueIDs(t *testing.T) {
	c := NewCanvas()
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		stroke, err := c.Append("r1", json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
		require.False(t, seen[stroke.ID], "duplicate id %s", stroke.ID)
		seen[stroke.ID] = true
	}

	snap := c.Snapshot("r1")
	require.Len(t, snap, 50)
	for i, s := range snap {
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(s.Payload))
	}
	assert.Equal(t, 50, c.Len("r1"))
}

func TestCanvas_RoomsAreIsolated(t *testing.T) {
	c := NewCanvas()
	_, err := c.Append("r1", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	assert.Empty(t, c.Snapshot("r2"))
	c.Clear("r2")
	assert.Equal(t, 1, c.Len("r1"))
}

func TestCanvas_Clear(t *testing.T) {
	c := NewCanvas()
	_, err := c.Append("r1", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	c.Clear("r1")
	snap := c.Snapshot("r1")
	require.NotNil(t, snap)
	assert.Empty(t, snap)

	c.Clear("never-drawn")
	assert.Empty(t, c.Snapshot("never-drawn"))
}

func TestCanvas_SnapshotIsACopy(t *testing.T) {
	c := NewCanvas()
	_, err := c.Append("r1", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	snap := c.Snapshot("r1")
	snap[0].ID = "mutated"
	_, err = c.Append("r1", json.RawMessage(`{"x":2}`))
	require.NoError(t, err)

	assert.NotEqual(t, "mutated", c.Snapshot("r1")[0].ID)
	assert.Len(t, snap, 1)
}

func TestCanvas_AppendRejectsNonObjects(t *testing.T) {
	c := NewCanvas()
	for _, payload := range []string{``, `null`, `[1,2]`, `"line"`, `{broken`, "{\"color\":\"\xc3(\"}"} {
		_, err := c.Append("r1", json.RawMessage(payload))
		assert.ErrorIs(t, err, ErrInvalidStroke, "payload %q", payload)
	}
	assert.Equal(t, 0, c.Len("r1"))
}

func TestStroke_MarshalMergesServerFields(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	stroke := Stroke{
		ID:        "s-1",
		Timestamp: at,
		Payload:   json.RawMessage(`{"tool":"pen","color":"#f00","id":"client-chosen"}`),
	}

	data, err := json.Marshal(stroke)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool":"pen","color":"#f00","id":"s-1","timestamp":"2026-03-04T05:06:07Z"}`, string(data))
}
