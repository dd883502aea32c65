package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Inbound
	}{
		{"join", `{"type":"join_room","room_id":"r1"}`, JoinRoom{RoomID: "r1"}},
		{"leave", `{"type":"leave_room"}`, LeaveRoom{}},
		{
			"offer",
			`{"type":"webrtc_offer","target_user":"bob","offer":{"sdp":"v=0","type":"offer"}}`,
			Signal{Kind: SignalOffer, Target: "bob", Payload: json.RawMessage(`{"sdp":"v=0","type":"offer"}`)},
		},
		{
			"answer",
			`{"type":"webrtc_answer","target_user":"bob","answer":{"sdp":"v=0"}}`,
			Signal{Kind: SignalAnswer, Target: "bob", Payload: json.RawMessage(`{"sdp":"v=0"}`)},
		},
		{
			"ice candidate",
			`{"type":"webrtc_ice_candidate","target_user":"bob","candidate":null}`,
			Signal{Kind: SignalICECandidate, Target: "bob", Payload: json.RawMessage(`null`)},
		},
		{"screen start", `{"type":"screen_share_start"}`, ScreenShare{Active: true}},
		{"screen stop", `{"type":"screen_share_stop"}`, ScreenShare{Active: false}},
		{"draw", `{"type":"whiteboard_draw","data":{"x":1}}`, WhiteboardDraw{Data: json.RawMessage(`{"x":1}`)}},
		{"clear", `{"type":"whiteboard_clear"}`, WhiteboardClear{}},
		{"chat", `{"type":"chat_message","message":"hi"}`, ChatMessage{Message: json.RawMessage(`"hi"`)}},
		{"heartbeat", `{"type":"heartbeat"}`, Heartbeat{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeInbound_Errors(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{"unknown type", `{"type":"teleport"}`, ErrUnknownType},
		{"missing type", `{"room_id":"r1"}`, ErrMissingField},
		{"join without room", `{"type":"join_room"}`, ErrMissingField},
		{"offer without target", `{"type":"webrtc_offer","offer":{}}`, ErrMissingField},
		{"answer without payload", `{"type":"webrtc_answer","target_user":"bob"}`, ErrMissingField},
		{"draw without data", `{"type":"whiteboard_draw"}`, ErrMissingField},
		{"draw with array data", `{"type":"whiteboard_draw","data":[1,2]}`, ErrMissingField},
		{"chat without message", `{"type":"chat_message"}`, ErrMissingField},
		{"invalid utf-8 in chat", "{\"type\":\"chat_message\",\"message\":\"hi \xff\xfe\"}", ErrInvalidEncoding},
		{"invalid utf-8 in stroke", "{\"type\":\"whiteboard_draw\",\"data\":{\"color\":\"\xc3(\"}}", ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := DecodeInbound([]byte("not json"))
	assert.Error(t, err)
}

func TestEvent_WireFormat(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			"presence",
			presenceEvent(TypeUserJoined, "alice", at),
			`{"type":"user_joined","user_id":"alice","timestamp":"2026-01-02T03:04:05Z"}`,
		},
		{
			"empty whiteboard state",
			Event{Type: TypeWhiteboardState, Data: []Stroke{}},
			`{"type":"whiteboard_state","data":[]}`,
		},
		{
			"offer relay",
			signalEvent(Signal{Kind: SignalOffer, Target: "bob", Payload: json.RawMessage(`{"sdp":"x"}`)}, "alice"),
			`{"type":"webrtc_offer","offer":{"sdp":"x"},"sender":"alice"}`,
		},
		{
			"candidate relay",
			signalEvent(Signal{Kind: SignalICECandidate, Target: "bob", Payload: json.RawMessage(`{"c":1}`)}, "alice"),
			`{"type":"webrtc_ice_candidate","candidate":{"c":1},"sender":"alice"}`,
		},
		{
			"screen share stop",
			screenShareEvent(false, "alice"),
			`{"type":"screen_share_stop","user_id":"alice"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := encodeEvent(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
