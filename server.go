package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	cfg     *Config
	hub     *Hub
	srv     *http.Server
	limiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(cfg *Config, hub *Hub) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		hub:     hub,
		limiter: NewRateLimiter(cfg.RateLimitPerIP),
		ctx:     ctx,
		cancel:  cancel,
	}
	go s.limiter.Run(ctx)

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/room/{room_id}", s.handleRoomPage).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms", s.handleRooms).Methods(http.MethodGet)
	r.HandleFunc("/api/room/{room_id}/users", s.handleRoomUsers).Methods(http.MethodGet)
	r.HandleFunc("/ws/{user_id}", s.handleWS).Methods(http.MethodGet)
	return r
}

func (s *Server) ListenAndServe() error {
	if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
		s.srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		slog.Info("TLS enabled", "cert", s.cfg.TLSCert)
		return s.srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	}
	slog.Warn("TLS disabled; browsers only grant camera access on localhost without it")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown() {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"rooms":        s.hub.RoomCount(),
		"participants": s.hub.ParticipantCount(),
	})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Rooms())
}

type roomUsersResponse struct {
	RoomID string   `json:"room_id"`
	Users  []string `json:"users"`
	Count  int      `json:"count"`
}

func (s *Server) handleRoomUsers(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]
	users := s.hub.Members(roomID)
	writeJSON(w, http.StatusOK, roomUsersResponse{RoomID: roomID, Users: users, Count: len(users)})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.limiter.Allow(ip) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	userID := strings.TrimSpace(mux.Vars(r)["user_id"])
	if userID == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("upgrade error", "remote", ip, "error", err)
		return
	}

	client := NewClient(conn, userID, ip, s.cfg)
	client.OnPong(func() { s.hub.touchConn(userID, client) })

	go client.WritePump()
	go s.hub.Serve(s.ctx, userID, client)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
