package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vittapcode/homeboard/internal/pkg/backend"
	"github.com/vittapcode/homeboard/internal/pkg/model"
	"github.com/vittapcode/homeboard/internal/pkg/notify"
	"github.com/vittapcode/homeboard/internal/pkg/store"
)

const testSecret = "test-secret"

type controlCall struct {
	id     model.DeviceID
	action model.DeviceStatus
	topic  model.Topic
	extra  map[string]any
}

type fakeController struct {
	calls  []controlCall
	reject bool
}

func (f *fakeController) ControlDevice(id model.DeviceID, action model.DeviceStatus, topic model.Topic, extra map[string]any) bool {
	f.calls = append(f.calls, controlCall{id: id, action: action, topic: topic, extra: extra})
	return !f.reject
}

// fakeBackend satisfies backendClient with per-method hooks; unset hooks fail
// the call so tests only exercise the routes they stub.
type fakeBackend struct {
	login     func(username, password string) (*backend.LoginResponse, error)
	register  func(username, password string) (*model.User, error)
	me        func(token string) (*model.User, error)
	alerts    func(token string, query backend.AlertQuery) (*backend.AlertPage, error)
	users     func(token string) ([]model.User, error)
	doorHist  func(token string, query backend.DoorHistoryQuery) (*backend.DoorHistoryPage, error)
	pushToken func(token, pushToken, platform string) error
}

var errNotStubbed = &backend.Error{Status: http.StatusNotImplemented, Message: "not stubbed"}

func (f *fakeBackend) Login(_ context.Context, username, password string) (*backend.LoginResponse, error) {
	if f.login == nil {
		return nil, errNotStubbed
	}
	return f.login(username, password)
}

func (f *fakeBackend) Register(_ context.Context, username, password string) (*model.User, error) {
	if f.register == nil {
		return nil, errNotStubbed
	}
	return f.register(username, password)
}

func (f *fakeBackend) Me(_ context.Context, token string) (*model.User, error) {
	if f.me == nil {
		return nil, errNotStubbed
	}
	return f.me(token)
}

func (f *fakeBackend) Alerts(_ context.Context, token string, query backend.AlertQuery) (*backend.AlertPage, error) {
	if f.alerts == nil {
		return nil, errNotStubbed
	}
	return f.alerts(token, query)
}

func (f *fakeBackend) AcknowledgeAlert(_ context.Context, _ string, id int64) (*model.Alert, error) {
	return &model.Alert{ID: id}, nil
}

func (f *fakeBackend) DoorHistory(_ context.Context, token string, query backend.DoorHistoryQuery) (*backend.DoorHistoryPage, error) {
	if f.doorHist == nil {
		return nil, errNotStubbed
	}
	return f.doorHist(token, query)
}

func (f *fakeBackend) MyRfidCard(_ context.Context, _ string) (*backend.RfidCardStatus, error) {
	return &backend.RfidCardStatus{HasCard: false}, nil
}

func (f *fakeBackend) ReportLostCard(_ context.Context, _ string) (*backend.ReportLostResponse, error) {
	return &backend.ReportLostResponse{Success: true}, nil
}

func (f *fakeBackend) RegisterPushToken(_ context.Context, token, pushToken, platform string) error {
	if f.pushToken == nil {
		return errNotStubbed
	}
	return f.pushToken(token, pushToken, platform)
}

func (f *fakeBackend) Users(_ context.Context, token string) ([]model.User, error) {
	if f.users == nil {
		return nil, errNotStubbed
	}
	return f.users(token)
}

func (f *fakeBackend) UpdateUserRole(_ context.Context, _ string, id int64, role model.Role) (*model.User, error) {
	return &model.User{ID: id, Role: role}, nil
}

func (f *fakeBackend) DeleteUser(_ context.Context, _ string, _ int64) error { return nil }
func (f *fakeBackend) UpdatePin(_ context.Context, _ string, _ string) error { return nil }
func (f *fakeBackend) UpdateProfile(_ context.Context, _ string, _ string) error {
	return nil
}

type testServer struct {
	mux        *http.ServeMux
	store      *store.Store
	hub        *notify.Hub
	controller *fakeController
	backend    *fakeBackend
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		mux:        http.NewServeMux(),
		store:      store.New(),
		hub:        notify.NewHub(),
		controller: &fakeController{},
		backend:    &fakeBackend{},
	}
	New(ts.store, ts.controller, ts.hub, ts.backend, testSecret).Register(ts.mux)
	return ts
}

func signToken(t *testing.T, secret string, user model.User) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func adminToken(t *testing.T) string {
	return signToken(t, testSecret, model.User{ID: 1, Username: "admin", Role: model.RoleAdmin})
}

func userToken(t *testing.T) string {
	return signToken(t, testSecret, model.User{ID: 2, Username: "resident", Role: model.RoleUser})
}

func (ts *testServer) request(method, target, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	ts.mux.ServeHTTP(res, req)
	return res
}

func TestHealthz_NeedsNoAuth(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ok", res.Body.String())
}

func TestState_RejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodGet, "/api/state", "", nil)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestState_RejectsTokenSignedWithWrongSecret(t *testing.T) {
	ts := newTestServer(t)
	forged := signToken(t, "other-secret", model.User{ID: 1, Role: model.RoleAdmin})

	res := ts.request(http.MethodGet, "/api/state", forged, nil)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestState_ReturnsSnapshotWithUnreadCount(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Update(func(tx *store.Txn) {
		tx.SetConnected(true)
		tx.SetDevice(model.DeviceFan, model.DeviceState{Status: model.StatusOn, Online: true})
	})
	ts.hub.Unread.Increment()

	res := ts.request(http.MethodGet, "/api/state", userToken(t), nil)

	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Connected bool                                 `json:"connected"`
		Devices   map[model.DeviceID]model.DeviceState `json:"devices"`
		Unread    int                                  `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.True(t, body.Connected)
	assert.Equal(t, model.StatusOn, body.Devices[model.DeviceFan].Status)
	assert.Equal(t, 1, body.Unread)
}

func TestState_AcceptsTokenViaQueryParameter(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodGet, "/api/state?token="+userToken(t), "", nil)

	assert.Equal(t, http.StatusOK, res.Code)
}

func TestDevices_ListsTheRegistry(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodGet, "/api/devices", userToken(t), nil)

	require.Equal(t, http.StatusOK, res.Code)
	var devices []model.DeviceConfig
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &devices))
	assert.Len(t, devices, len(model.Devices()))
}

func TestControl_UnknownDeviceIs404(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodPost, "/api/devices/toaster/control", userToken(t),
		ControlRequest{Action: model.StatusOn})

	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Empty(t, ts.controller.calls)
}

func TestControl_RejectsActionsOtherThanOnOff(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodPost, "/api/devices/fan/control", userToken(t),
		ControlRequest{Action: model.StatusOpen})

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, ts.controller.calls)
}

func TestControl_DispatchesToTheEngine(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodPost, "/api/devices/fan/control", userToken(t),
		ControlRequest{Action: model.StatusOn})

	assert.Equal(t, http.StatusAccepted, res.Code)
	require.Len(t, ts.controller.calls, 1)
	call := ts.controller.calls[0]
	assert.Equal(t, model.DeviceFan, call.id)
	assert.Equal(t, model.StatusOn, call.action)
	assert.Equal(t, model.TopicFanControl, call.topic)
	assert.Empty(t, call.extra)
}

func TestControl_SharedTopicDevicesCarryTheirWireName(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodPost, "/api/devices/neo_bedroom/control", userToken(t),
		ControlRequest{Action: model.StatusOn, Color: "#00FF00"})

	assert.Equal(t, http.StatusAccepted, res.Code)
	require.Len(t, ts.controller.calls, 1)
	call := ts.controller.calls[0]
	assert.Equal(t, model.TopicLightControl, call.topic)
	assert.Equal(t, "neopixel", call.extra["device"])
	assert.Equal(t, "#00FF00", call.extra["color"])
}

func TestControl_ColorIsDroppedForNonColorDevices(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodPost, "/api/devices/light_living/control", userToken(t),
		ControlRequest{Action: model.StatusOn, Color: "#00FF00"})

	assert.Equal(t, http.StatusAccepted, res.Code)
	require.Len(t, ts.controller.calls, 1)
	call := ts.controller.calls[0]
	assert.Equal(t, "living", call.extra["device"])
	assert.NotContains(t, call.extra, "color")
}

func TestControl_EngineRejectionIs503(t *testing.T) {
	ts := newTestServer(t)
	ts.controller.reject = true

	res := ts.request(http.MethodPost, "/api/devices/fan/control", userToken(t),
		ControlRequest{Action: model.StatusOn})

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestUnread_ReadAndClear(t *testing.T) {
	ts := newTestServer(t)
	ts.hub.Unread.Increment()
	ts.hub.Unread.Increment()

	res := ts.request(http.MethodGet, "/api/alerts/unread", userToken(t), nil)
	require.Equal(t, http.StatusOK, res.Code)
	var body UnreadResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	res = ts.request(http.MethodPost, "/api/alerts/unread/clear", userToken(t), nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 0, ts.hub.Unread.Count())
}

func TestDoorHistory_RequiresSecurityView(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.doorHist = func(string, backend.DoorHistoryQuery) (*backend.DoorHistoryPage, error) {
		return &backend.DoorHistoryPage{}, nil
	}

	res := ts.request(http.MethodGet, "/api/doors/history", userToken(t), nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = ts.request(http.MethodGet, "/api/doors/history", adminToken(t), nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestUsers_RequiresUsersManage(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.users = func(string) ([]model.User, error) {
		return []model.User{{ID: 1, Username: "admin", Role: model.RoleAdmin}}, nil
	}

	res := ts.request(http.MethodGet, "/api/users", userToken(t), nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = ts.request(http.MethodGet, "/api/users", adminToken(t), nil)
	require.Equal(t, http.StatusOK, res.Code)
	var users []model.User
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &users))
	assert.Len(t, users, 1)
}

func TestLogin_PassesCredentialsThrough(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.login = func(username, password string) (*backend.LoginResponse, error) {
		assert.Equal(t, "dana", username)
		assert.Equal(t, "hunter2", password)
		return &backend.LoginResponse{Token: "jwt123", User: model.User{ID: 1, Username: "dana"}}, nil
	}

	res := ts.request(http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "dana", Password: "hunter2"})

	require.Equal(t, http.StatusOK, res.Code)
	var body backend.LoginResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "jwt123", body.Token)
}

func TestLogin_BackendStatusIsPreserved(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.login = func(string, string) (*backend.LoginResponse, error) {
		return nil, &backend.Error{Status: http.StatusUnauthorized, Message: "invalid credentials"}
	}

	res := ts.request(http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "dana", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "invalid credentials", body.Error)
}

func TestLogin_UnreachableBackendIs502(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.login = func(string, string) (*backend.LoginResponse, error) {
		return nil, context.DeadlineExceeded
	}

	res := ts.request(http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "dana", Password: "hunter2"})

	assert.Equal(t, http.StatusBadGateway, res.Code)
}

func TestAlerts_ForwardsPaginationQuery(t *testing.T) {
	ts := newTestServer(t)
	var captured backend.AlertQuery
	ts.backend.alerts = func(_ string, query backend.AlertQuery) (*backend.AlertPage, error) {
		captured = query
		return &backend.AlertPage{Page: query.Page}, nil
	}

	res := ts.request(http.MethodGet, "/api/alerts?page=2&limit=5&type=GAS", userToken(t), nil)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, backend.AlertQuery{Page: 2, Limit: 5, Type: "GAS"}, captured)
}

func TestAlerts_ForwardsCallersBearerToken(t *testing.T) {
	ts := newTestServer(t)
	token := userToken(t)
	var forwarded string
	ts.backend.alerts = func(token string, _ backend.AlertQuery) (*backend.AlertPage, error) {
		forwarded = token
		return &backend.AlertPage{}, nil
	}

	res := ts.request(http.MethodGet, "/api/alerts", token, nil)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, token, forwarded)
}

func TestPushToken_RegistersViaBackend(t *testing.T) {
	ts := newTestServer(t)
	var gotPush, gotPlatform string
	ts.backend.pushToken = func(_, pushToken, platform string) error {
		gotPush, gotPlatform = pushToken, platform
		return nil
	}

	res := ts.request(http.MethodPost, "/api/push-tokens", userToken(t),
		PushTokenRequest{Token: "expo-abc", Platform: "ios"})

	assert.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, "expo-abc", gotPush)
	assert.Equal(t, "ios", gotPlatform)
}

func TestDeleteUser_AdminOnlyNoContent(t *testing.T) {
	ts := newTestServer(t)

	res := ts.request(http.MethodDelete, "/api/users/7", adminToken(t), nil)

	assert.Equal(t, http.StatusNoContent, res.Code)
}
