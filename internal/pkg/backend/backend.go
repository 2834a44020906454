package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/config"
	"github.com/vittapcode/homeboard/internal/pkg/model"
)

// Client talks to the external backend: auth, alert history, door access
// history, RFID cards and user management all live there. Every call is a
// plain token-authenticated JSON exchange; the caller's bearer token is passed
// through untouched.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func New(cfg *config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  zap.L(),
	}
}

// Error carries the backend's error body alongside the HTTP status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

func do[T any](ctx context.Context, c *Client, method, path, token string, body any) (*T, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &Error{Status: res.StatusCode, Message: "request failed"}
		var errBody struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&errBody); err == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		}
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.StatusCode))
		return nil, apiErr
	}

	out := new(T)
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return nil, err
	}
	return out, nil
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	return do[LoginResponse](ctx, c, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
}

func (c *Client) Register(ctx context.Context, username, password string) (*model.User, error) {
	return do[model.User](ctx, c, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"password": password,
	})
}

func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	return do[model.User](ctx, c, http.MethodGet, "/auth/me", token, nil)
}

type AlertQuery struct {
	Page  int
	Limit int
	Type  string
}

type AlertPage struct {
	Alerts     []model.Alert `json:"alerts"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

func (c *Client) Alerts(ctx context.Context, token string, query AlertQuery) (*AlertPage, error) {
	values := url.Values{}
	if query.Page > 0 {
		values.Set("page", fmt.Sprint(query.Page))
	}
	if query.Limit > 0 {
		values.Set("limit", fmt.Sprint(query.Limit))
	}
	if query.Type != "" {
		values.Set("type", query.Type)
	}
	return do[AlertPage](ctx, c, http.MethodGet, withQuery("/alerts", values), token, nil)
}

func (c *Client) AcknowledgeAlert(ctx context.Context, token string, id int64) (*model.Alert, error) {
	return do[model.Alert](ctx, c, http.MethodPatch, fmt.Sprintf("/alerts/%d/acknowledge", id), token, nil)
}

type DoorHistoryQuery struct {
	Page  int
	Limit int
	Event string
}

type DoorHistoryLog struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Method    *string        `json:"method"`
	Timestamp time.Time      `json:"timestamp"`
	User      *model.UserRef `json:"user"`
}

type DoorHistoryPage struct {
	Logs       []DoorHistoryLog `json:"logs"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

func (c *Client) DoorHistory(ctx context.Context, token string, query DoorHistoryQuery) (*DoorHistoryPage, error) {
	values := url.Values{}
	if query.Page > 0 {
		values.Set("page", fmt.Sprint(query.Page))
	}
	if query.Limit > 0 {
		values.Set("limit", fmt.Sprint(query.Limit))
	}
	if query.Event != "" {
		values.Set("event", query.Event)
	}
	return do[DoorHistoryPage](ctx, c, http.MethodGet, withQuery("/doors/history", values), token, nil)
}

type RfidCard struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type RfidCardStatus struct {
	HasCard bool      `json:"hasCard"`
	Card    *RfidCard `json:"card"`
}

func (c *Client) MyRfidCard(ctx context.Context, token string) (*RfidCardStatus, error) {
	return do[RfidCardStatus](ctx, c, http.MethodGet, "/doors/rfid/my-card", token, nil)
}

type ReportLostResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) ReportLostCard(ctx context.Context, token string) (*ReportLostResponse, error) {
	return do[ReportLostResponse](ctx, c, http.MethodPost, "/doors/rfid/report-lost", token, nil)
}

func (c *Client) RegisterPushToken(ctx context.Context, token, pushToken, platform string) error {
	_, err := do[map[string]any](ctx, c, http.MethodPost, "/push-tokens", token, map[string]string{
		"token":    pushToken,
		"platform": platform,
	})
	return err
}

func (c *Client) Users(ctx context.Context, token string) ([]model.User, error) {
	users, err := do[[]model.User](ctx, c, http.MethodGet, "/users", token, nil)
	if err != nil {
		return nil, err
	}
	return *users, nil
}

func (c *Client) UpdateUserRole(ctx context.Context, token string, id int64, role model.Role) (*model.User, error) {
	return do[model.User](ctx, c, http.MethodPatch, fmt.Sprintf("/users/%d", id), token, map[string]string{
		"role": string(role),
	})
}

func (c *Client) DeleteUser(ctx context.Context, token string, id int64) error {
	_, err := do[map[string]any](ctx, c, http.MethodDelete, fmt.Sprintf("/users/%d", id), token, nil)
	return err
}

func (c *Client) UpdatePin(ctx context.Context, token, pin string) error {
	_, err := do[map[string]any](ctx, c, http.MethodPatch, "/auth/pin", token, map[string]string{
		"pin": pin,
	})
	return err
}

func (c *Client) UpdateProfile(ctx context.Context, token, password string) error {
	_, err := do[map[string]any](ctx, c, http.MethodPatch, "/auth/profile", token, map[string]string{
		"password": password,
	})
	return err
}

func withQuery(path string, values url.Values) string {
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}
