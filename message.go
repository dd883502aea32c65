package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Wire type tags. Field names on the wire are fixed by the browser client.
const (
	TypeJoinRoom           = "join_room"
	TypeLeaveRoom          = "leave_room"
	TypeWebRTCOffer        = "webrtc_offer"
	TypeWebRTCAnswer       = "webrtc_answer"
	TypeWebRTCICECandidate = "webrtc_ice_candidate"
	TypeScreenShareStart   = "screen_share_start"
	TypeScreenShareStop    = "screen_share_stop"
	TypeWhiteboardDraw     = "whiteboard_draw"
	TypeWhiteboardClear    = "whiteboard_clear"
	TypeChatMessage        = "chat_message"
	TypeHeartbeat          = "heartbeat"

	TypeUserJoined      = "user_joined"
	TypeUserLeft        = "user_left"
	TypeWhiteboardState = "whiteboard_state"
)

var (
	ErrUnknownType     = errors.New("unknown message type")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidEncoding = errors.New("frame is not valid UTF-8")
)

// Inbound is one decoded client message. The set of implementations is closed:
// JoinRoom, LeaveRoom, Signal, ScreenShare, WhiteboardDraw, WhiteboardClear,
// ChatMessage and Heartbeat.
type Inbound interface {
	inbound()
}

type JoinRoom struct{ RoomID string }

type LeaveRoom struct{}

// SignalKind selects which WebRTC negotiation step a Signal carries.
type SignalKind int

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalICECandidate
)

func (k SignalKind) Type() string {
	switch k {
	case SignalAnswer:
		return TypeWebRTCAnswer
	case SignalICECandidate:
		return TypeWebRTCICECandidate
	default:
		return TypeWebRTCOffer
	}
}

// Signal is relayed verbatim to Target; Payload is never inspected.
type Signal struct {
	Kind    SignalKind
	Target  string
	Payload json.RawMessage
}

type ScreenShare struct{ Active bool }

type WhiteboardDraw struct{ Data json.RawMessage }

type WhiteboardClear struct{}

type ChatMessage struct{ Message json.RawMessage }

type Heartbeat struct{}

func (JoinRoom) inbound()        {}
func (LeaveRoom) inbound()       {}
func (Signal) inbound()          {}
func (ScreenShare) inbound()     {}
func (WhiteboardDraw) inbound()  {}
func (WhiteboardClear) inbound() {}
func (ChatMessage) inbound()     {}
func (Heartbeat) inbound()       {}

type envelope struct {
	Type       string          `json:"type"`
	RoomID     string          `json:"room_id"`
	TargetUser string          `json:"target_user"`
	Offer      json.RawMessage `json:"offer"`
	Answer     json.RawMessage `json:"answer"`
	Candidate  json.RawMessage `json:"candidate"`
	Data       json.RawMessage `json:"data"`
	Message    json.RawMessage `json:"message"`
}

// DecodeInbound parses one text frame. Unknown tags and missing required
// fields are reported as ErrUnknownType and ErrMissingField. Payloads are
// relayed byte for byte in text frames, so the whole frame must be UTF-8.
func DecodeInbound(data []byte) (Inbound, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeJoinRoom:
		if env.RoomID == "" {
			return nil, missing(env.Type, "room_id")
		}
		return JoinRoom{RoomID: env.RoomID}, nil
	case TypeLeaveRoom:
		return LeaveRoom{}, nil
	case TypeWebRTCOffer:
		return decodeSignal(env, SignalOffer, "offer", env.Offer)
	case TypeWebRTCAnswer:
		return decodeSignal(env, SignalAnswer, "answer", env.Answer)
	case TypeWebRTCICECandidate:
		return decodeSignal(env, SignalICECandidate, "candidate", env.Candidate)
	case TypeScreenShareStart:
		return ScreenShare{Active: true}, nil
	case TypeScreenShareStop:
		return ScreenShare{Active: false}, nil
	case TypeWhiteboardDraw:
		if !isObject(env.Data) {
			return nil, missing(env.Type, "data")
		}
		return WhiteboardDraw{Data: env.Data}, nil
	case TypeWhiteboardClear:
		return WhiteboardClear{}, nil
	case TypeChatMessage:
		if len(env.Message) == 0 {
			return nil, missing(env.Type, "message")
		}
		return ChatMessage{Message: env.Message}, nil
	case TypeHeartbeat:
		return Heartbeat{}, nil
	case "":
		return nil, missing("message", "type")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeSignal(env envelope, kind SignalKind, field string, payload json.RawMessage) (Inbound, error) {
	if env.TargetUser == "" {
		return nil, missing(env.Type, "target_user")
	}
	if len(payload) == 0 {
		return nil, missing(env.Type, field)
	}
	return Signal{Kind: kind, Target: env.TargetUser, Payload: payload}, nil
}

func missing(msgType, field string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMissingField, msgType, field)
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{' && utf8.Valid(trimmed) && json.Valid(trimmed)
}

// Event is an outbound frame. Only the fields relevant to Type are set.
type Event struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Data      any             `json:"data,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func presenceEvent(eventType, userID string, at time.Time) Event {
	return Event{Type: eventType, UserID: userID, Timestamp: formatTimestamp(at)}
}

func signalEvent(sig Signal, sender string) Event {
	ev := Event{Type: sig.Kind.Type(), Sender: sender}
	switch sig.Kind {
	case SignalAnswer:
		ev.Answer = sig.Payload
	case SignalICECandidate:
		ev.Candidate = sig.Payload
	default:
		ev.Offer = sig.Payload
	}
	return ev
}

func screenShareEvent(active bool, userID string) Event {
	if active {
		return Event{Type: TypeScreenShareStart, UserID: userID}
	}
	return Event{Type: TypeScreenShareStop, UserID: userID}
}

func encodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	return data, nil
}
