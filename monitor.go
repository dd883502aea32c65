package main

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// Run drives the liveness sweep every HeartbeatInterval until ctx is
// cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep force-evicts every participant whose last heartbeat is older than
// HeartbeatTimeout and returns their ids.
func (h *Hub) Sweep() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	var stale []string
	for id, p := range h.participants {
		if now.Sub(p.lastSeen) > h.cfg.HeartbeatTimeout {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	slices.Sort(stale)

	slog.Info("evicting stale participants", "count", len(stale))
	h.evictLocked(reasonStale, stale...)
	return stale
}
