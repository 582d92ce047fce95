package server

import (
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/service"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The API is served to browser front ends on other origins.
		return true
	},
}

// wsEnvelope wraps every frame sent to WebSocket clients.
type wsEnvelope struct {
	Type    string             `json:"type"`
	Payload model.CandleUpdate `json:"payload"`
}

// handleWS upgrades the request and streams live candle updates for the
// requested symbols until the client disconnects.
// GET /ws?symbols=PLS,HEX
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	symbols := strings.Split(raw, ",")

	sub, err := s.charts.Subscribe(symbols)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		if uerr := s.charts.Unsubscribe(sub); uerr != nil {
			log.Error().Err(uerr).Msg("failed to unsubscribe after upgrade failure")
		}
		return
	}

	log.Info().Strs("symbols", symbols).Msg("ws client connected")

	done := make(chan struct{})
	go s.writePump(conn, sub, done)
	go s.readPump(conn, done)
}

// readPump consumes the connection until the client goes away, keeping the
// read deadline fresh via the pong handler.
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer func() {
		close(done)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("ws unexpected close")
			}
			return
		}
		// Incoming frames carry no meaning; subscriptions are fixed at
		// connect time via the symbols query parameter.
	}
}

// writePump streams candle updates to the client and sends periodic pings,
// releasing the subscription when the connection ends.
func (s *Server) writePump(conn *websocket.Conn, sub *service.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		if err := s.charts.Unsubscribe(sub); err != nil {
			log.Error().Err(err).Msg("failed to unsubscribe ws client")
		}
		log.Info().Msg("ws client disconnected")
	}()

	for {
		select {
		case <-done:
			return

		case update, ok := <-sub.Updates():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The dispatcher shut down.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}

			frame, err := json.Marshal(wsEnvelope{Type: "candle", Payload: update})
			if err != nil {
				log.Error().Err(err).Msg("failed to encode candle update")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
