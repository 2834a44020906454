package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/vittapcode/homeboard/internal/pkg/backend"
	"github.com/vittapcode/homeboard/internal/pkg/contxt"
	"github.com/vittapcode/homeboard/internal/pkg/model"
	"go.uber.org/zap"
)

// backendClient is the slice of the backend the passthrough routes need.
type backendClient interface {
	Login(ctx context.Context, username, password string) (*backend.LoginResponse, error)
	Register(ctx context.Context, username, password string) (*model.User, error)
	Me(ctx context.Context, token string) (*model.User, error)
	Alerts(ctx context.Context, token string, query backend.AlertQuery) (*backend.AlertPage, error)
	AcknowledgeAlert(ctx context.Context, token string, id int64) (*model.Alert, error)
	DoorHistory(ctx context.Context, token string, query backend.DoorHistoryQuery) (*backend.DoorHistoryPage, error)
	MyRfidCard(ctx context.Context, token string) (*backend.RfidCardStatus, error)
	ReportLostCard(ctx context.Context, token string) (*backend.ReportLostResponse, error)
	RegisterPushToken(ctx context.Context, token, pushToken, platform string) error
	Users(ctx context.Context, token string) ([]model.User, error)
	UpdateUserRole(ctx context.Context, token string, id int64, role model.Role) (*model.User, error)
	DeleteUser(ctx context.Context, token string, id int64) error
	UpdatePin(ctx context.Context, token, pin string) error
	UpdateProfile(ctx context.Context, token, password string) error
}

// writeBackendError maps a backend failure onto this response, preserving the
// upstream status where one exists.
func (s *Server) writeBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.Error
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Status, apiErr.Message)
		return
	}
	s.logger.Error("backend unreachable", zap.Error(err))
	writeError(w, http.StatusBadGateway, "backend unreachable")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[LoginRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.backend.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[RegisterRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := s.backend.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.backend.Me(r.Context(), contxt.Token(r.Context()))
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	query := backend.AlertQuery{Type: r.URL.Query().Get("type")}
	query.Page, _ = intQuery(r, "page")
	query.Limit, _ = intQuery(r, "limit")
	page, err := s.backend.Alerts(r.Context(), contxt.Token(r.Context()), query)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	alert, err := s.backend.AcknowledgeAlert(r.Context(), contxt.Token(r.Context()), id)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleDoorHistory(w http.ResponseWriter, r *http.Request) {
	query := backend.DoorHistoryQuery{Event: r.URL.Query().Get("event")}
	query.Page, _ = intQuery(r, "page")
	query.Limit, _ = intQuery(r, "limit")
	page, err := s.backend.DoorHistory(r.Context(), contxt.Token(r.Context()), query)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleMyRfidCard(w http.ResponseWriter, r *http.Request) {
	status, err := s.backend.MyRfidCard(r.Context(), contxt.Token(r.Context()))
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReportLost(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.ReportLostCard(r.Context(), contxt.Token(r.Context()))
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePushToken(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[PushTokenRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.backend.RegisterPushToken(r.Context(), contxt.Token(r.Context()), req.Token, req.Platform); err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.backend.Users(r.Context(), contxt.Token(r.Context()))
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	req, err := unmarshalPayload[UpdateRoleRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := s.backend.UpdateUserRole(r.Context(), contxt.Token(r.Context()), id, req.Role)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := s.backend.DeleteUser(r.Context(), contxt.Token(r.Context()), id); err != nil {
		s.writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdatePin(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[UpdatePinRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.backend.UpdatePin(r.Context(), contxt.Token(r.Context()), req.Pin); err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[UpdateProfileRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.backend.UpdateProfile(r.Context(), contxt.Token(r.Context()), req.Password); err != nil {
		s.writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func intQuery(r *http.Request, name string) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
