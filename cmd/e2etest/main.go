// E2E test: walks two participants through a room on a live signaling server.
// Usage: go run ./cmd/e2etest --server ws://localhost:5000
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type event struct {
	Type    string          `json:"type"`
	UserID  string          `json:"user_id"`
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
}

type options struct {
	server  string
	room    string
	timeout time.Duration
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "e2etest",
		Short:        "Run a two-participant smoke test against a signaling server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "ws://localhost:5000", "server base URL (ws:// or wss://)")
	cmd.Flags().StringVar(&opts.room, "room", "", "room id (default: generated)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "wait per expected event")

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts options) error {
	suffix := time.Now().Format("150405.000")
	room := opts.room
	if room == "" {
		room = "e2e-" + suffix
	}
	alice, bob := "alice-"+suffix, "bob-"+suffix

	log.Println(">> Connecting participants...")
	aliceConn, err := dial(opts.server, alice)
	if err != nil {
		return fmt.Errorf("alice connect: %w", err)
	}
	defer aliceConn.Close()
	bobConn, err := dial(opts.server, bob)
	if err != nil {
		return fmt.Errorf("bob connect: %w", err)
	}
	defer bobConn.Close()
	log.Println("   Connected ✓")

	log.Println(">> Joining room", room)
	if err := send(aliceConn, map[string]any{"type": "join_room", "room_id": room}); err != nil {
		return err
	}
	if _, err := expect(aliceConn, "whiteboard_state", opts.timeout); err != nil {
		return fmt.Errorf("alice: %w", err)
	}
	if err := send(bobConn, map[string]any{"type": "join_room", "room_id": room}); err != nil {
		return err
	}
	joined, err := expect(aliceConn, "user_joined", opts.timeout)
	if err != nil || joined.UserID != bob {
		return fmt.Errorf("alice expected user_joined for %s: %v", bob, err)
	}
	if _, err := expect(bobConn, "whiteboard_state", opts.timeout); err != nil {
		return fmt.Errorf("bob: %w", err)
	}
	log.Println("   Presence ✓")

	log.Println(">> Relaying a stroke...")
	if err := send(aliceConn, map[string]any{"type": "whiteboard_draw", "data": map[string]any{"x": 1}}); err != nil {
		return err
	}
	stroke, err := expect(bobConn, "whiteboard_draw", opts.timeout)
	if err != nil {
		return fmt.Errorf("bob: %w", err)
	}
	if !strings.Contains(string(stroke.Data), `"id"`) {
		return fmt.Errorf("stroke missing server id: %s", stroke.Data)
	}
	log.Printf("   Bob received stroke %s ✓", stroke.Data)

	log.Println(">> Chat echo...")
	if err := send(bobConn, map[string]any{"type": "chat_message", "message": "hello from bob"}); err != nil {
		return err
	}
	if _, err := expect(bobConn, "chat_message", opts.timeout); err != nil {
		return fmt.Errorf("bob: %w", err)
	}
	// Frames arrive in hub order, so anything Alice got for her own stroke
	// would be read before the chat echo.
	echo, err := next(aliceConn, opts.timeout)
	if err != nil {
		return fmt.Errorf("alice: %w", err)
	}
	if echo.Type != "chat_message" {
		return fmt.Errorf("alice expected chat_message, got %s (drawer must not see its own stroke)", echo.Type)
	}
	log.Println("   Chat ✓ (no stroke echo to drawer)")

	log.Println(">> Alice drops without leaving...")
	_ = aliceConn.Close()
	left, err := expect(bobConn, "user_left", opts.timeout)
	if err != nil || left.UserID != alice {
		return fmt.Errorf("bob expected user_left for %s: %v", alice, err)
	}
	log.Println("   Departure ✓")

	fmt.Println()
	log.Println("═══════════════════════════════")
	log.Println("  E2E TEST PASSED ✓")
	log.Println("═══════════════════════════════")
	return nil
}

func dial(baseURL, userID string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(strings.TrimRight(baseURL, "/")+"/ws/"+userID, nil)
	return conn, err
}

func send(conn *websocket.Conn, msg map[string]any) error {
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %v: %w", msg["type"], err)
	}
	return nil
}

func next(conn *websocket.Conn, timeout time.Duration) (event, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var ev event
	if err := conn.ReadJSON(&ev); err != nil {
		return event{}, err
	}
	return ev, nil
}

// expect reads until an event of the wanted type arrives, skipping others.
func expect(conn *websocket.Conn, want string, timeout time.Duration) (event, error) {
	for {
		ev, err := next(conn, timeout)
		if err != nil {
			return event{}, fmt.Errorf("waiting for %s: %w", want, err)
		}
		if ev.Type == want {
			return ev, nil
		}
	}
}
