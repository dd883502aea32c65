package main

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

var (
	ErrSuperseded    = errors.New("connection superseded")
	ErrNotConnected  = errors.New("participant not connected")
	ErrAlreadyInRoom = errors.New("participant already in another room")
)

// Conn is the outbound half of a participant's transport.
type Conn interface {
	Send(data []byte) error
	Close() error
}

type participant struct {
	conn     Conn
	lastSeen time.Time
	roomID   string
}

const (
	reasonSuperseded = "superseded"
	reasonSendFailed = "send failed"
	reasonStale      = "heartbeat timeout"
)

type eviction struct {
	userID string
	reason string
}

// Hub owns every participant, room and whiteboard. A single mutex guards the
// participant and room maps so compound updates across them never interleave.
// Conn.Send must not block; it is called with the lock held.
type Hub struct {
	cfg    *Config
	canvas *Canvas
	now    func() time.Time

	mu           sync.Mutex
	participants map[string]*participant
	rooms        map[string]*Room
}

func NewHub(cfg *Config) *Hub {
	return &Hub{
		cfg:          cfg,
		canvas:       NewCanvas(),
		now:          time.Now,
		participants: make(map[string]*participant),
		rooms:        make(map[string]*Room),
	}
}

func (h *Hub) Canvas() *Canvas { return h.canvas }

// Connect installs conn for userID. A live connection under the same id is
// force-evicted first: closed, announced as user_left, removed.
func (h *Hub) Connect(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.participants[userID]; ok {
		slog.Info("participant reconnecting", "user", userID)
		h.evictLocked(reasonSuperseded, userID)
	}
	h.participants[userID] = &participant{conn: conn, lastSeen: h.now()}
	slog.Info("participant connected", "user", userID, "participants", len(h.participants))
}

// Disconnect drops userID from every map without notifying its room.
func (h *Hub) Disconnect(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnectLocked(userID)
}

// Release is called when conn's transport has ended. It announces user_left
// to the room and disconnects, unless userID has since been bound to a newer
// connection, in which case it does nothing and returns false.
func (h *Hub) Release(userID string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.participants[userID]
	if !ok || p.conn != conn {
		return false
	}
	failed := h.leaveLocked(userID)
	h.disconnectLocked(userID)
	h.evictLocked(reasonSendFailed, failed...)
	return true
}

func (h *Hub) Touch(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.participants[userID]
	if ok {
		p.lastSeen = h.now()
	}
	return ok
}

// touchConn refreshes the heartbeat only if conn is still the live binding.
func (h *Hub) touchConn(userID string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.participants[userID]
	if !ok || p.conn != conn {
		return false
	}
	p.lastSeen = h.now()
	return true
}

// Send delivers ev to userID. Delivery failure evicts the participant; the
// caller never sees the error.
func (h *Hub) Send(userID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.sendLocked(userID, ev) {
		h.evictLocked(reasonSendFailed, userID)
	}
}

// Unicast relays ev to target. An absent target is a no-op.
func (h *Hub) Unicast(target string, ev Event) {
	h.Send(target, ev)
}

// BroadcastRoom sends ev to every member of roomID except exclude. Members
// whose delivery fails are evicted after the whole fan-out completes.
func (h *Hub) BroadcastRoom(roomID string, ev Event, exclude string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	failed := h.broadcastLocked(roomID, ev, exclude)
	h.evictLocked(reasonSendFailed, failed...)
}

// Join adds userID to roomID and announces user_joined to the other members.
// A participant already in a different room must Leave first.
func (h *Hub) Join(userID, roomID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	failed, err := h.joinLocked(userID, roomID)
	if err != nil {
		return err
	}
	h.evictLocked(reasonSendFailed, failed...)
	return nil
}

// Leave removes userID from its current room after announcing user_left.
// No-op if the participant is not in a room.
func (h *Hub) Leave(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	failed := h.leaveLocked(userID)
	h.evictLocked(reasonSendFailed, failed...)
}

// Rooms lists the ids of all non-empty rooms, sorted.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Members lists the ids in roomID, sorted. Unknown rooms yield an empty slice.
func (h *Hub) Members(roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[roomID]; ok {
		return room.Members()
	}
	return []string{}
}

func (h *Hub) RoomOf(userID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.participants[userID]
	if !ok || p.roomID == "" {
		return "", false
	}
	return p.roomID, true
}

func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) ParticipantCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.participants)
}

func (h *Hub) disconnectLocked(userID string) bool {
	p, ok := h.participants[userID]
	if !ok {
		return false
	}
	delete(h.participants, userID)
	if p.roomID != "" {
		h.removeMemberLocked(userID, p.roomID)
	}
	slog.Info("participant disconnected", "user", userID, "participants", len(h.participants))
	return true
}

func (h *Hub) removeMemberLocked(userID, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	room.Remove(userID)
	if room.Empty() {
		delete(h.rooms, roomID)
		slog.Info("room removed", "room", room.ID())
	}
}

func (h *Hub) joinLocked(userID, roomID string) ([]string, error) {
	p, ok := h.participants[userID]
	if !ok {
		return nil, ErrNotConnected
	}
	if p.roomID != "" && p.roomID != roomID {
		return nil, ErrAlreadyInRoom
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		h.rooms[roomID] = room
	}
	if room.Has(userID) {
		slog.Debug("participant rejoined room", "user", userID, "room", roomID)
	}
	room.Add(userID)
	p.roomID = roomID
	slog.Info("participant joined room", "user", userID, "room", roomID, "members", room.Len())

	return h.broadcastLocked(roomID, presenceEvent(TypeUserJoined, userID, h.now()), userID), nil
}

func (h *Hub) leaveLocked(userID string) []string {
	p, ok := h.participants[userID]
	if !ok || p.roomID == "" {
		return nil
	}
	roomID := p.roomID
	failed := h.broadcastLocked(roomID, presenceEvent(TypeUserLeft, userID, h.now()), userID)
	h.removeMemberLocked(userID, roomID)
	p.roomID = ""
	slog.Info("participant left room", "user", userID, "room", roomID)
	return failed
}

// broadcastLocked fans ev out over a snapshot of the room's members and
// returns the ids whose delivery failed. It never evicts.
func (h *Hub) broadcastLocked(roomID string, ev Event, exclude string) []string {
	room, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	data, err := encodeEvent(ev)
	if err != nil {
		slog.Error("dropping broadcast", "room", roomID, "error", err)
		return nil
	}

	var failed []string
	for _, id := range room.Members() {
		if id == exclude {
			continue
		}
		if !h.deliverLocked(id, data) {
			failed = append(failed, id)
		}
	}
	return failed
}

// sendLocked reports false only when userID exists and delivery failed.
func (h *Hub) sendLocked(userID string, ev Event) bool {
	data, err := encodeEvent(ev)
	if err != nil {
		slog.Error("dropping message", "user", userID, "error", err)
		return true
	}
	return h.deliverLocked(userID, data)
}

func (h *Hub) deliverLocked(userID string, data []byte) bool {
	p, ok := h.participants[userID]
	if !ok {
		return true
	}
	if err := p.conn.Send(data); err != nil {
		slog.Warn("send failed", "user", userID, "error", err)
		return false
	}
	return true
}

// evictLocked force-removes each participant: close its connection, drop it
// from the maps, then tell its former room it left. Members that fail to
// receive that notice are queued and evicted in turn.
func (h *Hub) evictLocked(reason string, userIDs ...string) {
	queue := make([]eviction, 0, len(userIDs))
	for _, id := range userIDs {
		queue = append(queue, eviction{userID: id, reason: reason})
	}

	for len(queue) > 0 {
		ev := queue[0]
		queue = queue[1:]

		p, ok := h.participants[ev.userID]
		if !ok {
			continue
		}
		if err := p.conn.Close(); err != nil {
			slog.Debug("close failed", "user", ev.userID, "error", err)
		}
		roomID := p.roomID
		h.disconnectLocked(ev.userID)
		slog.Info("participant evicted", "user", ev.userID, "reason", ev.reason)

		if roomID == "" {
			continue
		}
		notice := presenceEvent(TypeUserLeft, ev.userID, h.now())
		for _, id := range h.broadcastLocked(roomID, notice, "") {
			queue = append(queue, eviction{userID: id, reason: reasonSendFailed})
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, p := range h.participants {
		if err := p.conn.Close(); err != nil {
			slog.Debug("close failed", "user", id, "error", err)
		}
	}
	h.participants = make(map[string]*participant)
	h.rooms = make(map[string]*Room)
	slog.Info("all connections closed")
}
