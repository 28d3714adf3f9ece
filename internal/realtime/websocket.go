package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsMaxMessage = 512
)

// WSSink writes events to a websocket connection as text frames and
// keep-alives as pings.
type WSSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

func (s *WSSink) Send(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (s *WSSink) KeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// ReadPump discards client frames and cancels when the peer goes away.
// Clients are receive-only.
func (s *WSSink) ReadPump(cancel context.CancelFunc) {
	defer cancel()
	s.conn.SetReadLimit(wsMaxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *WSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteWait))
	return s.conn.Close()
}
