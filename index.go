package main

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

const pageStyle = `<style>
*{margin:0;padding:0;box-sizing:border-box}
:root{--bg:#191919;--card:#242424;--border:#333;--fg:#e5e5e5;--muted:#737373;--radius:6px}
body{font-family:system-ui,-apple-system,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;background:var(--bg);color:var(--fg);
min-height:100vh;display:flex;align-items:center;justify-content:center;padding:24px}
.container{width:100%;max-width:420px;display:flex;flex-direction:column;gap:24px}
.title{font-size:16px;font-weight:600}
.subtitle{font-size:11px;color:var(--muted);line-height:1.6}
.card{background:var(--card);border:1px solid var(--border);border-radius:var(--radius)}
.card-row{display:flex;justify-content:space-between;padding:10px 14px;border-bottom:1px solid var(--border);font-size:12px}
.card-row:last-child{border-bottom:none}
a{color:var(--fg)}
code{font-size:11px;color:var(--muted)}
</style>`

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>Room Signal</title>` + pageStyle + `</head>
<body><div class="container">
<div class="title">Room Signal</div>
<div class="subtitle">Signaling and room coordination for multi-party calls. Media flows peer to peer.</div>
<div class="card">
{{range .Rooms}}<div class="card-row"><a href="/room/{{.}}">{{.}}</a></div>
{{else}}<div class="card-row"><span>No active rooms</span></div>{{end}}
</div>
<div class="card">
<div class="card-row"><span>GET</span><code>/api/rooms</code></div>
<div class="card-row"><span>GET</span><code>/api/room/{room_id}/users</code></div>
<div class="card-row"><span>WS</span><code>/ws/{user_id}</code></div>
</div>
</div></body></html>`

const roomPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.RoomID}} · Room Signal</title>` + pageStyle + `</head>
<body><div class="container">
<div class="title">{{.RoomID}}</div>
<div class="subtitle">Connect to <code>/ws/{user_id}</code> and send <code>{"type":"join_room","room_id":"{{.RoomID}}"}</code>.</div>
<div class="card">
{{range .Users}}<div class="card-row"><span>{{.}}</span></div>
{{else}}<div class="card-row"><span>Nobody here yet</span></div>{{end}}
</div>
<a href="/">All rooms</a>
</div></body></html>`

var pages = func() *template.Template {
	t := template.Must(template.New("index").Parse(indexPage))
	template.Must(t.New("room").Parse(roomPage))
	return t
}()

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "index", map[string]any{"Rooms": s.hub.Rooms()})
}

func (s *Server) handleRoomPage(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]
	s.renderPage(w, "room", map[string]any{"RoomID": roomID, "Users": s.hub.Members(roomID)})
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		slog.Warn("render page", "page", name, "error", err)
	}
}
