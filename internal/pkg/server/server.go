package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/contxt"
	"github.com/vittapcode/homeboard/internal/pkg/model"
	"github.com/vittapcode/homeboard/internal/pkg/notify"
	"github.com/vittapcode/homeboard/internal/pkg/store"
)

type controller interface {
	ControlDevice(id model.DeviceID, action model.DeviceStatus, topic model.Topic, extra map[string]any) bool
}

// Server is the HTTP surface the dashboard UI talks to: live state and device
// control backed by the store and the control engine, plus passthrough routes
// to the external backend for everything it owns.
type Server struct {
	store   *store.Store
	engine  controller
	hub     *notify.Hub
	backend backendClient
	secret  []byte
	logger  *zap.Logger
}

func New(st *store.Store, engine controller, hub *notify.Hub, backend backendClient, jwtSecret string) *Server {
	return &Server{
		store:   st,
		engine:  engine,
		hub:     hub,
		backend: backend,
		secret:  []byte(jwtSecret),
		logger:  zap.L(),
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	auth := s.AuthMiddleware

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	// auth passthrough; login/register are the only unauthenticated routes
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.Handle("GET /api/auth/me", auth(http.HandlerFunc(s.handleMe)))
	mux.Handle("PATCH /api/auth/pin", auth(http.HandlerFunc(s.handleUpdatePin)))
	mux.Handle("PATCH /api/auth/profile", auth(http.HandlerFunc(s.handleUpdateProfile)))

	// live state and control
	mux.Handle("GET /api/state", auth(http.HandlerFunc(s.handleState)))
	mux.Handle("GET /api/devices", auth(http.HandlerFunc(s.handleDevices)))
	mux.Handle("POST /api/devices/{id}/control", auth(http.HandlerFunc(s.handleControl)))
	mux.Handle("GET /api/ws", auth(http.HandlerFunc(s.handleWebsocket)))

	// alerts
	mux.Handle("GET /api/alerts", auth(s.requirePermission(model.PermAlertsView, s.handleAlerts)))
	mux.Handle("PATCH /api/alerts/{id}/acknowledge", auth(s.requirePermission(model.PermAlertsView, s.handleAcknowledgeAlert)))
	mux.Handle("GET /api/alerts/unread", auth(s.requirePermission(model.PermAlertsView, s.handleUnread)))
	mux.Handle("POST /api/alerts/unread/clear", auth(s.requirePermission(model.PermAlertsView, s.handleClearUnread)))

	// security surfaces
	mux.Handle("GET /api/doors/history", auth(s.requirePermission(model.PermSecurityView, s.handleDoorHistory)))
	mux.Handle("GET /api/doors/rfid/my-card", auth(http.HandlerFunc(s.handleMyRfidCard)))
	mux.Handle("POST /api/doors/rfid/report-lost", auth(http.HandlerFunc(s.handleReportLost)))

	// user management
	mux.Handle("GET /api/users", auth(s.requirePermission(model.PermUsersManage, s.handleUsers)))
	mux.Handle("PATCH /api/users/{id}", auth(s.requirePermission(model.PermUsersManage, s.handleUpdateUserRole)))
	mux.Handle("DELETE /api/users/{id}", auth(s.requirePermission(model.PermUsersManage, s.handleDeleteUser)))

	mux.Handle("POST /api/push-tokens", auth(http.HandlerFunc(s.handlePushToken)))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": snapshot.Connected,
		"devices":   snapshot.Devices,
		"sensors":   snapshot.Sensors,
		"unread":    s.hub.Unread.Count(),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.Devices())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	user, _ := contxt.User(r.Context())

	cfg, ok := model.DeviceByID(model.DeviceID(r.PathValue("id")))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown device")
		return
	}
	required := model.PermDeviceControl
	if cfg.Emergency {
		required = model.PermEmergencyControl
	}
	if !user.Role.HasPermission(required) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	req, err := unmarshalPayload[ControlRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action != model.StatusOn && req.Action != model.StatusOff {
		writeError(w, http.StatusBadRequest, "action must be on or off")
		return
	}

	extra := map[string]any{}
	if cfg.Wire != "" {
		extra["device"] = cfg.Wire
	}
	if cfg.ColorCapable && req.Color != "" {
		extra["color"] = req.Color
	}

	if !s.engine.ControlDevice(cfg.ID, req.Action, cfg.ControlTopic, extra) {
		writeError(w, http.StatusServiceUnavailable, "not connected to the message bus")
		return
	}
	writeJSON(w, http.StatusAccepted, ControlResponse{Accepted: true})
}

func (s *Server) handleUnread(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, UnreadResponse{Count: s.hub.Unread.Count()})
}

// Viewing the alerts surface clears the navbar badge for everyone.
func (s *Server) handleClearUnread(w http.ResponseWriter, _ *http.Request) {
	s.hub.Unread.Reset()
	writeJSON(w, http.StatusOK, UnreadResponse{Count: 0})
}

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
