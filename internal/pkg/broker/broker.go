package broker

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/config"
	"github.com/vittapcode/homeboard/internal/pkg/model"
	"github.com/vittapcode/homeboard/internal/pkg/store"
)

// Handler receives every raw message delivered on a subscribed topic.
type Handler func(topic string, payload []byte)

// Manager owns the single broker session for the process. Connect is
// idempotent, Publish fails closed when the session is down, and reconnection
// is left to paho's built-in retry with a fixed interval. Each (re)connect
// re-subscribes the fixed topic set; the broker replaces existing
// subscriptions, so repeated cycles do not duplicate delivery.
type Manager struct {
	cfg     *config.BrokerConfig
	store   *store.Store
	handler Handler
	logger  *zap.Logger
	errChan chan error

	mu     sync.Mutex
	client paho_mqtt.Client

	// test seam
	newClient func(*paho_mqtt.ClientOptions) paho_mqtt.Client
}

func New(cfg *config.BrokerConfig, st *store.Store, handler Handler, errChan chan error) *Manager {
	return &Manager{
		cfg:       cfg,
		store:     st,
		handler:   handler,
		logger:    zap.L(),
		errChan:   errChan,
		newClient: paho_mqtt.NewClient,
	}
}

func (m *Manager) sendIfErr(err error) {
	if err != nil {
		m.errChan <- err
	}
}

// Connect establishes the session. If one already exists this is a no-op.
func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return nil
	}

	opts := paho_mqtt.NewClientOptions().
		AddBroker(m.cfg.URL).
		SetClientID(clientID()).
		SetUsername(m.cfg.Username).
		SetPassword(m.cfg.Password).
		SetCleanSession(true).
		SetConnectTimeout(m.cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(m.cfg.RetryInterval).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(m.onConnectionLost)

	client := m.newClient(opts)
	m.client = client

	token := client.Connect()
	if ok := token.WaitTimeout(m.cfg.ConnectTimeout); !ok {
		// Retry continues in the background; the UI sees the offline flag
		// until the handshake completes.
		m.logger.Warn("broker handshake pending", zap.String("url", m.cfg.URL))
		return nil
	}
	if err := token.Error(); err != nil {
		m.client = nil
		m.logger.Error("failed to connect to broker", zap.String("url", m.cfg.URL), zap.Error(err))
		return err
	}
	return nil
}

func (m *Manager) onConnect(client paho_mqtt.Client) {
	m.logger.Info("broker connected", zap.String("url", m.cfg.URL))
	m.store.Update(func(tx *store.Txn) {
		tx.SetConnected(true)
	})

	filters := make(map[string]byte, len(model.SubscribedTopics))
	for _, topic := range model.SubscribedTopics {
		filters[topic.String()] = 0
	}
	token := client.SubscribeMultiple(filters, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		m.handler(msg.Topic(), msg.Payload())
	})
	if ok := token.WaitTimeout(m.cfg.ConnectTimeout); !ok {
		m.logger.Warn("subscribe still pending")
		return
	}
	m.sendIfErr(token.Error())
}

func (m *Manager) onConnectionLost(_ paho_mqtt.Client, err error) {
	m.logger.Error("broker connection lost", zap.Error(err))
	m.store.Update(func(tx *store.Txn) {
		tx.SetConnected(false)
	})
}

// Publish marshals payload and attempts a single synchronous send. It returns
// false without queueing when the session is not connected; callers surface
// that to the operator.
func (m *Manager) Publish(topic string, payload any) bool {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil || !client.IsConnectionOpen() {
		m.logger.Warn("not connected, dropping publish", zap.String("topic", topic))
		return false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("failed to marshal publish payload", zap.String("topic", topic), zap.Error(err))
		return false
	}
	m.logger.Debug("publishing", zap.String("topic", topic), zap.ByteString("payload", data))

	token := client.Publish(topic, 0, false, data)
	if ok := token.WaitTimeout(m.cfg.ConnectTimeout); !ok {
		return false
	}
	if err := token.Error(); err != nil {
		m.logger.Error("publish failed", zap.String("topic", topic), zap.Error(err))
		return false
	}
	return true
}

// Close tears the session down. The next Connect starts a fresh one.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return
	}
	m.client.Disconnect(250)
	m.client = nil
}

func clientID() string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("homeboard_%s", hex.EncodeToString(suffix))
}
