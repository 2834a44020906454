package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/model"
)

// Emitter is a typed listener registry. Subscribe returns a disposer; Emit
// delivers synchronously to every registered listener.
type Emitter[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{subs: map[int]func(T){}}
}

func (e *Emitter[T]) Subscribe(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Emitter[T]) Emit(value T) {
	e.mu.Lock()
	listeners := make([]func(T), 0, len(e.subs))
	for _, fn := range e.subs {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(value)
	}
}

// UnreadCounter tracks the number of alerts the operator has not seen yet.
// New subscribers are replayed the current count immediately; Reset clears to
// zero when the alerts surface is viewed.
type UnreadCounter struct {
	mu      sync.Mutex
	count   int
	emitter *Emitter[int]
}

func NewUnreadCounter() *UnreadCounter {
	return &UnreadCounter{emitter: NewEmitter[int]()}
}

func (c *UnreadCounter) Subscribe(fn func(int)) func() {
	c.mu.Lock()
	current := c.count
	c.mu.Unlock()
	dispose := c.emitter.Subscribe(fn)
	fn(current)
	return dispose
}

func (c *UnreadCounter) Increment() {
	c.mu.Lock()
	c.count++
	current := c.count
	c.mu.Unlock()
	c.emitter.Emit(current)
}

func (c *UnreadCounter) Reset() {
	c.mu.Lock()
	c.count = 0
	c.mu.Unlock()
	c.emitter.Emit(0)
}

func (c *UnreadCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message is an operator-facing toast-level notice.
type Message struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
}

// Messages fans operator notices out to the UI and mirrors them into the log.
type Messages struct {
	emitter *Emitter[Message]
	logger  *zap.Logger
}

func NewMessages() *Messages {
	return &Messages{
		emitter: NewEmitter[Message](),
		logger:  zap.L(),
	}
}

func (m *Messages) Subscribe(fn func(Message)) func() {
	return m.emitter.Subscribe(fn)
}

func (m *Messages) Info(title, body string) {
	m.emit(Message{Severity: SeverityInfo, Title: title, Body: body})
}

func (m *Messages) Warning(title, body string) {
	m.emit(Message{Severity: SeverityWarning, Title: title, Body: body})
}

func (m *Messages) Error(title, body string) {
	m.emit(Message{Severity: SeverityError, Title: title, Body: body})
}

func (m *Messages) emit(msg Message) {
	switch msg.Severity {
	case SeverityError:
		m.logger.Error(msg.Title, zap.String("message", msg.Body))
	case SeverityWarning:
		m.logger.Warn(msg.Title, zap.String("message", msg.Body))
	default:
		m.logger.Info(msg.Title, zap.String("message", msg.Body))
	}
	m.emitter.Emit(msg)
}

// Hub bundles the independent listener registries so UI surfaces can depend on
// just the events they care about.
type Hub struct {
	Alerts     *Emitter[model.Alert]
	Unread     *UnreadCounter
	RfidLost   *Emitter[model.RfidLostEvent]
	Enrollment *Emitter[model.EnrollmentResult]
	Messages   *Messages
}

func NewHub() *Hub {
	return &Hub{
		Alerts:     NewEmitter[model.Alert](),
		Unread:     NewUnreadCounter(),
		RfidLost:   NewEmitter[model.RfidLostEvent](),
		Enrollment: NewEmitter[model.EnrollmentResult](),
		Messages:   NewMessages(),
	}
}
