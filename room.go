package main

import "slices"

// Room is the member set of one room id. It is not safe for concurrent use;
// the Hub serializes all access.
type Room struct {
	id      string
	members map[string]struct{}
}

func NewRoom(id string) *Room {
	return &Room{
		id:      id,
		members: make(map[string]struct{}),
	}
}

func (r *Room) ID() string { return r.id }

func (r *Room) Add(userID string) {
	r.members[userID] = struct{}{}
}

func (r *Room) Remove(userID string) {
	delete(r.members, userID)
}

func (r *Room) Has(userID string) bool {
	_, ok := r.members[userID]
	return ok
}

func (r *Room) Len() int { return len(r.members) }

func (r *Room) Empty() bool { return len(r.members) == 0 }

// Members returns a sorted point-in-time copy of the member ids.
func (r *Room) Members() []string {
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
