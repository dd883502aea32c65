package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// Transport is one participant's bidirectional message stream.
type Transport interface {
	Conn
	Receive() ([]byte, error)
}

// Serve registers t under userID and runs its receive loop until the
// transport fails, ctx is cancelled or a newer connection takes the id over.
func (h *Hub) Serve(ctx context.Context, userID string, t Transport) {
	h.Connect(userID, t)
	defer func() {
		if h.Release(userID, t) {
			slog.Info("connection closed", "user", userID)
		}
		_ = t.Close()
	}()

	limiter := rate.NewLimiter(rate.Limit(h.cfg.MessageRate), max(1, int(h.cfg.MessageRate)*2))

	for ctx.Err() == nil {
		data, err := t.Receive()
		if err != nil {
			slog.Debug("receive ended", "user", userID, "error", err)
			return
		}
		if !h.touchConn(userID, t) {
			return
		}
		if !limiter.Allow() {
			slog.Warn("message rate exceeded, dropping", "user", userID)
			continue
		}

		msg, err := DecodeInbound(data)
		if err != nil {
			slog.Warn("malformed message", "user", userID, "error", err)
			if h.cfg.StrictDecode {
				return
			}
			continue
		}

		if err := h.Dispatch(userID, t, msg); err != nil {
			if errors.Is(err, ErrSuperseded) {
				return
			}
			slog.Warn("message rejected", "user", userID, "error", err)
		}
	}
}

// Dispatch applies one decoded message on behalf of userID. The whole
// operation, including any replies and fan-out, runs under the hub lock.
// Messages that need a room are ignored while the sender is in none.
func (h *Hub) Dispatch(userID string, conn Conn, msg Inbound) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.participants[userID]
	if !ok || p.conn != conn {
		return ErrSuperseded
	}
	p.lastSeen = h.now()

	var failed []string
	switch m := msg.(type) {
	case JoinRoom:
		if p.roomID != "" && p.roomID != m.RoomID {
			failed = append(failed, h.leaveLocked(userID)...)
		}
		joined, err := h.joinLocked(userID, m.RoomID)
		if err != nil {
			return fmt.Errorf("join %s: %w", m.RoomID, err)
		}
		failed = append(failed, joined...)

		snapshot := h.canvas.Snapshot(m.RoomID)
		slog.Debug("sending whiteboard state", "user", userID, "room", m.RoomID, "strokes", len(snapshot))
		state := Event{Type: TypeWhiteboardState, Data: snapshot}
		if !h.sendLocked(userID, state) {
			failed = append(failed, userID)
		}

	case LeaveRoom:
		failed = h.leaveLocked(userID)

	case Signal:
		if !h.sendLocked(m.Target, signalEvent(m, userID)) {
			failed = append(failed, m.Target)
		}

	case ScreenShare:
		if p.roomID != "" {
			failed = h.broadcastLocked(p.roomID, screenShareEvent(m.Active, userID), userID)
		}

	case WhiteboardDraw:
		if p.roomID != "" {
			stroke, err := h.canvas.Append(p.roomID, m.Data)
			if err != nil {
				return fmt.Errorf("whiteboard draw: %w", err)
			}
			slog.Debug("stroke stored", "user", userID, "room", p.roomID, "strokes", h.canvas.Len(p.roomID))
			ev := Event{Type: TypeWhiteboardDraw, Data: stroke, UserID: userID}
			failed = h.broadcastLocked(p.roomID, ev, userID)
		}

	case WhiteboardClear:
		if p.roomID != "" {
			h.canvas.Clear(p.roomID)
			failed = h.broadcastLocked(p.roomID, Event{Type: TypeWhiteboardClear, UserID: userID}, "")
		}

	case ChatMessage:
		if p.roomID != "" {
			ev := Event{
				Type:      TypeChatMessage,
				Message:   m.Message,
				UserID:    userID,
				Timestamp: formatTimestamp(h.now()),
			}
			failed = h.broadcastLocked(p.roomID, ev, "")
		}

	case Heartbeat:
		// lastSeen was refreshed above.

	default:
		return fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}

	h.evictLocked(reasonSendFailed, failed...)
	return nil
}
