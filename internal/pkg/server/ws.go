package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/model"
	"github.com/vittapcode/homeboard/internal/pkg/notify"
	"github.com/vittapcode/homeboard/pkg/sockets"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from a different origin than this gateway.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Frame is one push message to a connected dashboard.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleWebsocket streams the live state to one dashboard: an initial
// snapshot, a fresh snapshot on every store notification, and each fan-out
// event as its own frame.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	session := sockets.NewSession(conn)

	// The unread subscription replays the current count on its own, so only
	// the snapshot needs an explicit initial frame.
	session.Send(Frame{Type: "snapshot", Data: s.store.Snapshot()})

	disposers := []func(){
		s.store.Subscribe(func() {
			session.Send(Frame{Type: "snapshot", Data: s.store.Snapshot()})
		}),
		s.hub.Messages.Subscribe(func(msg notify.Message) {
			session.Send(Frame{Type: "toast", Data: msg})
		}),
		s.hub.Alerts.Subscribe(func(alert model.Alert) {
			session.Send(Frame{Type: "alert", Data: alert})
		}),
		s.hub.Unread.Subscribe(func(count int) {
			session.Send(Frame{Type: "unread", Data: count})
		}),
		s.hub.RfidLost.Subscribe(func(event model.RfidLostEvent) {
			session.Send(Frame{Type: "rfid_lost", Data: event})
		}),
		s.hub.Enrollment.Subscribe(func(result model.EnrollmentResult) {
			session.Send(Frame{Type: "enrollment", Data: result})
		}),
	}

	s.logger.Info("dashboard connected", zap.String("remote", r.RemoteAddr))
	session.Run()
	for _, dispose := range disposers {
		dispose()
	}
	s.logger.Info("dashboard disconnected", zap.String("remote", r.RemoteAddr))
}
