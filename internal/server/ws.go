package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/app"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // local UI only
	},
}

// ClientMessage is sent by the UI. Type is one of ping, start, stop,
// toggle, reset or movement; Data carries the movement name.
type ClientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// ServerMessage wraps every message sent to the UI.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StatusHandler pushes session status updates over a WebSocket and accepts
// session commands from the client.
type StatusHandler struct {
	app *app.App
}

// NewStatusHandler creates a new StatusHandler for a.
func NewStatusHandler(a *app.App) *StatusHandler {
	return &StatusHandler{app: a}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.app.Subscribe()
	defer cancel()

	// Replies from the read loop go through out; only this goroutine writes.
	out := make(chan ServerMessage, 8)
	writerDone := make(chan struct{})
	defer close(writerDone)
	readDone := make(chan struct{})
	go h.readLoop(conn, out, readDone, writerDone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeMessage(conn, ServerMessage{Type: "status", Data: h.app.Status()}); err != nil {
		return
	}

	for {
		select {
		case <-readDone:
			return
		case st, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeMessage(conn, ServerMessage{Type: "status", Data: st}); err != nil {
				return
			}
		case msg := <-out:
			if err := writeMessage(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StatusHandler) readLoop(conn *websocket.Conn, out chan<- ServerMessage, done chan<- struct{}, writerDone <-chan struct{}) {
	defer close(done)

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("WebSocket read failed")
			}
			return
		}

		reply, ok := h.handleMessage(msg)
		if !ok {
			continue
		}
		select {
		case out <- reply:
		case <-writerDone:
			return
		}
	}
}

// handleMessage runs a client command. Status changes reach the client
// through the subscription, so only pongs and errors are replied.
func (h *StatusHandler) handleMessage(msg ClientMessage) (ServerMessage, bool) {
	var err error
	switch msg.Type {
	case "ping":
		return ServerMessage{Type: "pong", Data: map[string]any{"timestamp": time.Now().Unix()}}, true
	case "start":
		_, err = h.app.StartAnalysis()
	case "stop":
		_, err = h.app.StopAnalysis()
	case "toggle":
		_, err = h.app.ToggleAnalysis()
	case "reset":
		_, err = h.app.Reset()
	case "movement":
		_, err = h.app.SelectMovement(msg.Data)
	default:
		return errorMessage("Unknown message type: " + msg.Type), true
	}
	if err != nil {
		return errorMessage(err.Error()), true
	}
	return ServerMessage{}, false
}

func errorMessage(text string) ServerMessage {
	return ServerMessage{Type: "error", Data: map[string]any{"message": text}}
}

func writeMessage(conn *websocket.Conn, msg ServerMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.WithError(err).Debug("WebSocket write failed")
		return err
	}
	return nil
}
