package sockets

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Session wraps one dashboard push connection. Outbound frames go through a
// buffered queue so a slow browser cannot stall the store's synchronous
// notification path; when the queue is full the frame is dropped and the
// client re-syncs from its next snapshot.
type Session struct {
	conn         *websocket.Conn
	out          chan any
	closeOnce    sync.Once
	done         chan struct{}
	pingInterval time.Duration
	writeTimeout time.Duration
	onClose      func()
}

func NewSession(conn *websocket.Conn, opts ...func(*Session)) *Session {
	s := &Session{
		conn:         conn,
		out:          make(chan any, 64),
		done:         make(chan struct{}),
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send queues a frame without blocking. It reports whether the frame was
// accepted.
func (s *Session) Send(frame any) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// Run services the connection until the peer goes away or Close is called.
func (s *Session) Run() {
	go s.readLoop()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	defer s.Close()

	for {
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains inbound frames so close and pong control messages are
// processed. The dashboard never sends data frames.
func (s *Session) readLoop() {
	defer s.Close()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
}
