package broker

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vittapcode/homeboard/internal/pkg/config"
	"github.com/vittapcode/homeboard/internal/pkg/model"
	"github.com/vittapcode/homeboard/internal/pkg/store"
)

type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeClient struct {
	mu sync.Mutex

	connected    bool
	connectToken fakeToken
	publishToken fakeToken

	publishes    []publishRecord
	filters      map[string]byte
	onMessage    paho_mqtt.MessageHandler
	disconnected bool
}

type publishRecord struct {
	topic   string
	payload []byte
}

func (c *fakeClient) IsConnected() bool      { return c.connected }
func (c *fakeClient) IsConnectionOpen() bool { return c.connected }

func (c *fakeClient) Connect() paho_mqtt.Token {
	token := c.connectToken
	if token.err == nil && !token.pending {
		c.connected = true
	}
	return &token
}

func (c *fakeClient) Disconnect(uint) {
	c.connected = false
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho_mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishes = append(c.publishes, publishRecord{topic: topic, payload: payload.([]byte)})
	token := c.publishToken
	return &token
}

func (c *fakeClient) Subscribe(string, byte, paho_mqtt.MessageHandler) paho_mqtt.Token {
	return &fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = filters
	c.onMessage = callback
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(...string) paho_mqtt.Token { return &fakeToken{} }

func (c *fakeClient) AddRoute(string, paho_mqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() paho_mqtt.ClientOptionsReader {
	return paho_mqtt.ClientOptionsReader{}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type received struct {
	topic   string
	payload string
}

func newManager(t *testing.T) (*Manager, *fakeClient, *store.Store, *[]received, *int) {
	t.Helper()
	cfg := &config.BrokerConfig{
		URL:            "tcp://localhost:1883",
		ConnectTimeout: 50 * time.Millisecond,
		RetryInterval:  50 * time.Millisecond,
	}
	st := store.New()
	var messages []received
	handler := func(topic string, payload []byte) {
		messages = append(messages, received{topic: topic, payload: string(payload)})
	}

	m := New(cfg, st, handler, make(chan error, 10))
	client := &fakeClient{}
	constructed := 0
	m.newClient = func(*paho_mqtt.ClientOptions) paho_mqtt.Client {
		constructed++
		return client
	}
	return m, client, st, &messages, &constructed
}

func TestConnect_IsIdempotent(t *testing.T) {
	m, _, _, _, constructed := newManager(t)

	require.NoError(t, m.Connect())
	require.NoError(t, m.Connect())

	assert.Equal(t, 1, *constructed)
}

func TestConnect_HandshakeErrorClearsClient(t *testing.T) {
	m, client, _, _, constructed := newManager(t)
	client.connectToken = fakeToken{err: errors.New("refused")}

	assert.Error(t, m.Connect())

	// A fresh Connect starts over instead of reusing the dead client.
	client.connectToken = fakeToken{}
	require.NoError(t, m.Connect())
	assert.Equal(t, 2, *constructed)
}

func TestConnect_PendingHandshakeKeepsRetryingInBackground(t *testing.T) {
	m, client, st, _, _ := newManager(t)
	client.connectToken = fakeToken{pending: true}

	require.NoError(t, m.Connect())

	assert.False(t, st.Connected())
}

func TestOnConnect_SubscribesAllTopicsAndRoutesMessages(t *testing.T) {
	m, client, st, messages, _ := newManager(t)
	require.NoError(t, m.Connect())

	m.onConnect(client)

	assert.True(t, st.Connected())
	assert.True(t, st.Device(model.DeviceFan).Online)
	require.Len(t, client.filters, len(model.SubscribedTopics))
	for _, topic := range model.SubscribedTopics {
		qos, ok := client.filters[topic.String()]
		assert.True(t, ok, "missing subscription for %s", topic)
		assert.Equal(t, byte(0), qos)
	}

	require.NotNil(t, client.onMessage)
	client.onMessage(client, &fakeMessage{topic: "home/fan/state", payload: []byte(`{"status":"on"}`)})
	require.Len(t, *messages, 1)
	assert.Equal(t, "home/fan/state", (*messages)[0].topic)
	assert.Equal(t, `{"status":"on"}`, (*messages)[0].payload)
}

func TestOnConnectionLost_MarksEverythingOfflinePreservingStatus(t *testing.T) {
	m, client, st, _, _ := newManager(t)
	require.NoError(t, m.Connect())
	m.onConnect(client)
	st.Update(func(tx *store.Txn) {
		tx.SetDevice(model.DeviceFan, model.DeviceState{Status: model.StatusOn, Online: true})
	})

	m.onConnectionLost(client, errors.New("EOF"))

	assert.False(t, st.Connected())
	state := st.Device(model.DeviceFan)
	assert.False(t, state.Online)
	assert.Equal(t, model.StatusOn, state.Status)
}

func TestPublish_FailsClosedWithoutSession(t *testing.T) {
	m, _, _, _, _ := newManager(t)

	assert.False(t, m.Publish("home/fan/control", map[string]any{"action": "on"}))
}

func TestPublish_FailsClosedWhenDisconnected(t *testing.T) {
	m, client, _, _, _ := newManager(t)
	require.NoError(t, m.Connect())
	client.connected = false

	assert.False(t, m.Publish("home/fan/control", map[string]any{"action": "on"}))
	assert.Empty(t, client.publishes)
}

func TestPublish_MarshalsPayloadAsJSON(t *testing.T) {
	m, client, _, _, _ := newManager(t)
	require.NoError(t, m.Connect())

	ok := m.Publish("home/fan/control", map[string]any{"action": "on"})

	require.True(t, ok)
	require.Len(t, client.publishes, 1)
	assert.Equal(t, "home/fan/control", client.publishes[0].topic)
	assert.JSONEq(t, `{"action":"on"}`, string(client.publishes[0].payload))
}

func TestPublish_TokenErrorReportsFalse(t *testing.T) {
	m, client, _, _, _ := newManager(t)
	require.NoError(t, m.Connect())
	client.publishToken = fakeToken{err: errors.New("broker gone")}

	assert.False(t, m.Publish("home/fan/control", map[string]any{"action": "on"}))
}

func TestClose_TearsDownSession(t *testing.T) {
	m, client, _, _, constructed := newManager(t)
	require.NoError(t, m.Connect())

	m.Close()

	assert.True(t, client.disconnected)
	assert.False(t, m.Publish("home/fan/control", map[string]any{"action": "on"}))

	require.NoError(t, m.Connect())
	assert.Equal(t, 2, *constructed)
}

func TestClientID_HasStablePrefixAndRandomSuffix(t *testing.T) {
	first := clientID()
	second := clientID()

	assert.Regexp(t, `^homeboard_[0-9a-f]{8}$`, first)
	assert.NotEqual(t, first, second)
}
