package main

import (
	"testing"
)

func TestRoom_AddRemove(t *testing.T) {
	room := NewRoom("test-room")

	room.Add("peer-1")
	if room.Len() != 1 {
		t.Errorf("expected 1 member, got %d", room.Len())
	}

	room.Add("peer-2")
	room.Add("peer-2")
	if room.Len() != 2 {
		t.Errorf("expected 2 members after duplicate add, got %d", room.Len())
	}

	room.Remove("peer-1")
	if room.Has("peer-1") {
		t.Error("peer-1 should be gone")
	}

	room.Remove("peer-2")
	room.Remove("never-there")
	if !room.Empty() {
		t.Errorf("expected empty room, got %d members", room.Len())
	}
}

func TestRoom_MembersSortedCopy(t *testing.T) {
	room := NewRoom("test-room")
	room.Add("carol")
	room.Add("alice")
	room.Add("bob")

	got := room.Members()
	want := []string{"alice", "bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("members[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got[0] = "mallory"
	if room.Has("mallory") {
		t.Error("Members must return a copy")
	}
	if room.ID() != "test-room" {
		t.Errorf("ID = %q", room.ID())
	}
}
