package server

import (
	"encoding/json"
	"sync"
	"time"

	"scm-scheduler/src/logger"
	"scm-scheduler/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	maxMessageSize = 64 * 1024 // clients only send control frames
	closeGrace     = time.Second
)

// -----------------------------------------------------------------------------
// WSTransport is the session transport over one WebSocket connection
// -----------------------------------------------------------------------------

type WSTransport struct {
	conn   *websocket.Conn
	logger *logger.Logger

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

// -----------------------------------------------------------------------------

// NewWSTransport starts the read and ping pumps of conn.
func NewWSTransport(conn *websocket.Conn, cfg models.MStreamConfig, log *logger.Logger) *WSTransport {
	t := &WSTransport{
		conn:       conn,
		logger:     log,
		writeWait:  time.Duration(cfg.WriteWaitSeconds) * time.Second,
		pongWait:   time.Duration(cfg.PongWaitSeconds) * time.Second,
		pingPeriod: time.Duration(cfg.PingPeriodSeconds) * time.Second,
		done:       make(chan struct{}),
	}
	if t.writeWait <= 0 {
		t.writeWait = 2 * time.Second
	}
	if t.pongWait <= 0 {
		t.pongWait = 60 * time.Second
	}
	if t.pingPeriod <= 0 || t.pingPeriod >= t.pongWait {
		t.pingPeriod = (t.pongWait * 9) / 10
	}

	go t.readPump()
	go t.pingPump()
	return t
}

// -----------------------------------------------------------------------------
// readPump - drains client frames and acts as the disconnect watchdog
// -----------------------------------------------------------------------------

func (t *WSTransport) readPump() {
	defer t.shutdown()

	t.conn.SetReadLimit(maxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(t.pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(t.pongWait))
		return nil
	})

	for {
		if _, _, err := t.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				t.logger.Info("WebSocket error: %v", err)
			}
			return
		}
	}
}

// -----------------------------------------------------------------------------
// pingPump - keeps idle sessions alive between frames
// -----------------------------------------------------------------------------

func (t *WSTransport) pingPump() {
	ticker := time.NewTicker(t.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if !t.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Send writes frame as one text message. json.RawMessage and []byte frames
// are written as-is.
func (t *WSTransport) Send(frame interface{}) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Send panicked: %v", r)
			ok = false
		}
	}()

	select {
	case <-t.done:
		return false
	default:
	}

	var data []byte
	switch f := frame.(type) {
	case json.RawMessage:
		data = f
	case []byte:
		data = f
	default:
		encoded, err := json.Marshal(frame)
		if err != nil {
			t.logger.Error("Failed to encode frame: %v", err)
			return false
		}
		data = encoded
	}

	return t.write(websocket.TextMessage, data)
}

// -----------------------------------------------------------------------------

func (t *WSTransport) write(messageType int, data []byte) bool {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
	if err := t.conn.WriteMessage(messageType, data); err != nil {
		t.logger.Debug("Write error: %v", err)
		t.shutdown()
		return false
	}
	return true
}

// -----------------------------------------------------------------------------

func (t *WSTransport) Done() <-chan struct{} {
	return t.done
}

// -----------------------------------------------------------------------------

// Close sends a normal close frame and releases the connection.
func (t *WSTransport) Close() {
	t.closeOnce.Do(func() {
		select {
		case <-t.done:
		default:
			t.writeMu.Lock()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
			t.writeMu.Unlock()
		}
		t.shutdown()
	})
}

// -----------------------------------------------------------------------------

func (t *WSTransport) shutdown() {
	t.doneOnce.Do(func() {
		close(t.done)
		t.conn.Close()
	})
}
