package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidStroke = errors.New("stroke payload must be a JSON object")

// Stroke is one whiteboard event. On the wire it is the caller's payload
// object with the server-assigned id and timestamp merged in.
type Stroke struct {
	ID        string
	Timestamp time.Time
	Payload   json.RawMessage
}

func (s Stroke) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if len(s.Payload) > 0 {
		if err := json.Unmarshal(s.Payload, &fields); err != nil {
			return nil, fmt.Errorf("stroke %s: %w", s.ID, err)
		}
	}
	id, _ := json.Marshal(s.ID)
	ts, _ := json.Marshal(formatTimestamp(s.Timestamp))
	fields["id"] = id
	fields["timestamp"] = ts
	return json.Marshal(fields)
}

// Canvas keeps an append-only stroke log per room.
type Canvas struct {
	mu     sync.Mutex
	boards map[string][]Stroke
	now    func() time.Time
}

func NewCanvas() *Canvas {
	return &Canvas{
		boards: make(map[string][]Stroke),
		now:    time.Now,
	}
}

// Snapshot returns a copy of the room's strokes in append order. It never
// returns nil so an empty board encodes as [].
func (c *Canvas) Snapshot(roomID string) []Stroke {
	c.mu.Lock()
	defer c.mu.Unlock()
	board := c.boards[roomID]
	out := make([]Stroke, len(board))
	copy(out, board)
	return out
}

func (c *Canvas) Append(roomID string, payload json.RawMessage) (Stroke, error) {
	if !isObject(payload) {
		return Stroke{}, ErrInvalidStroke
	}
	stroke := Stroke{
		ID:        uuid.NewString(),
		Timestamp: c.now(),
		Payload:   append(json.RawMessage(nil), payload...),
	}

	c.mu.Lock()
	c.boards[roomID] = append(c.boards[roomID], stroke)
	c.mu.Unlock()
	return stroke, nil
}

func (c *Canvas) Clear(roomID string) {
	c.mu.Lock()
	c.boards[roomID] = []Stroke{}
	c.mu.Unlock()
}

func (c *Canvas) Len(roomID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.boards[roomID])
}
