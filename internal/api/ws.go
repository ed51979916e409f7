package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/redline/internal/editservice"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	BlockIndex *int   `json:"block_index,omitempty"`
	EditedHTML string `json:"edited_html,omitempty"`
}

type wsOutbound struct {
	Type    string              `json:"type"`
	Update  *editservice.Update `json:"update,omitempty"`
	Session *editservice.View   `json:"session,omitempty"`
	Moved   bool                `json:"moved,omitempty"`
	Code    int                 `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
}

// Live handles GET /api/sessions/{id}/ws. The socket receives every editor
// event of the session as an "update" message and accepts the same commands
// as the REST endpoints.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		writeError(w, "ws", id, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	stop := h.svc.Watch(id, func(u editservice.Update) {
		push(writeCh, wsOutbound{Type: "update", Update: &u})
	})
	defer stop()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		push(writeCh, h.command(ctx, id, in))
	}
}

// command runs one inbound message against the session and returns the reply.
func (h *Handler) command(ctx context.Context, id string, in wsInbound) wsOutbound {
	var (
		v     editservice.View
		moved bool
		err   error
	)
	kind := strings.ToLower(strings.TrimSpace(in.Type))
	switch kind {
	case "ping":
		return wsOutbound{Type: "pong"}
	case "get":
		v, err = h.svc.Get(ctx, id)
	case "select":
		v, err = h.svc.Select(ctx, id, &in.Text, in.BlockIndex)
	case "clear_selection":
		v, err = h.svc.Select(ctx, id, nil, nil)
	case "propose":
		_, err = h.svc.Propose(ctx, id, in.EditedHTML)
	case "apply", "cancel":
		_, err = h.svc.Decide(ctx, id, kind == "apply")
	case "defer":
		_, err = h.svc.Defer(ctx, id)
	case "undo":
		v, moved, err = h.svc.Undo(ctx, id)
	case "redo":
		v, moved, err = h.svc.Redo(ctx, id)
	case "":
		return wsOutbound{Type: "error", Code: http.StatusBadRequest, Message: "type is required"}
	default:
		return wsOutbound{Type: "error", Code: http.StatusBadRequest, Message: "unsupported type: " + kind}
	}
	if err != nil {
		code, msg := statusFor(err)
		if code == http.StatusBadRequest || code == http.StatusInternalServerError {
			msg = err.Error()
		}
		return wsOutbound{Type: "error", Code: code, Message: msg}
	}
	if v.ID == "" {
		if v, err = h.svc.Get(ctx, id); err != nil {
			code, msg := statusFor(err)
			return wsOutbound{Type: "error", Code: code, Message: msg}
		}
	}
	return wsOutbound{Type: kind + "_ack", Session: &v, Moved: moved}
}

// push enqueues out without blocking, dropping the oldest queued message
// when the writer has fallen behind.
func push(writeCh chan wsOutbound, out wsOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
