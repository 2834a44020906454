package control

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/model"
	"github.com/vittapcode/homeboard/internal/pkg/notify"
	"github.com/vittapcode/homeboard/internal/pkg/store"
)

// DefaultDeadline is how long a command may go unconfirmed before its
// speculative state is rolled back.
const DefaultDeadline = 5 * time.Second

type publisher interface {
	Publish(topic string, payload any) bool
}

// Engine issues device commands optimistically: the store is mutated first so
// the UI feels immediate, the command is published, and a deadline check rolls
// the mutation back if no authoritative update lands in time. The write's
// fencing timestamp decides the outcome at deadline time: unchanged means
// silence (roll back), changed means either an authoritative update or a newer
// command won (do nothing). Deadlines are per command; overlapping commands on
// different devices are independent.
type Engine struct {
	store    *store.Store
	broker   publisher
	messages *notify.Messages
	logger   *zap.Logger
	deadline time.Duration

	mu      sync.Mutex
	pending map[model.DeviceID]pendingCommand
}

// pendingCommand holds the pre-command snapshot for rollback and the fencing
// value written by the speculative mutation.
type pendingCommand struct {
	prev  model.DeviceState
	fence int64
}

func New(st *store.Store, broker publisher, messages *notify.Messages) *Engine {
	return &Engine{
		store:    st,
		broker:   broker,
		messages: messages,
		logger:   zap.L(),
		deadline: DefaultDeadline,
		pending:  map[model.DeviceID]pendingCommand{},
	}
}

// WithDeadline overrides the rollback deadline.
func (e *Engine) WithDeadline(d time.Duration) *Engine {
	e.deadline = d
	return e
}

// ControlDevice applies the speculative state, publishes {action, extra...} on
// topic and schedules the rollback deadline. The return value reports only
// whether the publish went out; an unconfirmed command is reported later
// through the operator message bus.
func (e *Engine) ControlDevice(id model.DeviceID, action model.DeviceStatus, topic model.Topic, extra map[string]any) bool {
	e.logger.Debug("control device",
		zap.String("device", id.String()),
		zap.String("action", action.String()),
		zap.String("topic", topic.String()))

	fence := model.NowNano()
	var prev model.DeviceState
	e.store.Update(func(tx *store.Txn) {
		prev = tx.Device(id)
		next := prev
		next.Status = action
		next.Online = true
		next.LastUpdated = fence
		if cfg, ok := model.DeviceByID(id); ok && cfg.ColorCapable && action == model.StatusOn {
			if color, ok := extra["color"].(string); ok && color != "" {
				next.Color = color
			}
		}
		// Turning a color-capable device off keeps its color: next starts as a
		// copy of prev, so nothing to do for that case.
		tx.SetDevice(id, next)
	})

	// A newer command on the same device simply overwrites the entry; the
	// older deadline then sees a foreign fence and resolves as superseded.
	e.mu.Lock()
	e.pending[id] = pendingCommand{prev: prev, fence: fence}
	e.mu.Unlock()

	payload := map[string]any{"action": action}
	for key, value := range extra {
		payload[key] = value
	}

	if !e.broker.Publish(topic.String(), payload) {
		e.discard(id, fence)
		e.store.Update(func(tx *store.Txn) {
			tx.SetDevice(id, prev)
		})
		e.messages.Error("Command not sent", "Cannot reach the device, check the connection.")
		return false
	}

	time.AfterFunc(e.deadline, func() {
		e.resolve(id, fence)
	})
	return true
}

// discard removes the pending entry if it still belongs to this command.
func (e *Engine) discard(id model.DeviceID, fence int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.pending[id]
	if !ok || entry.fence != fence {
		return false
	}
	delete(e.pending, id)
	return true
}

// resolve runs at deadline expiry. Superseded entries are left for the newest
// command's own deadline; confirmed entries are dropped silently even when the
// authoritative status disagrees with what was requested.
func (e *Engine) resolve(id model.DeviceID, fence int64) {
	e.mu.Lock()
	entry, ok := e.pending[id]
	if !ok || entry.fence != fence {
		e.mu.Unlock()
		return
	}
	delete(e.pending, id)
	e.mu.Unlock()

	if e.store.Device(id).LastUpdated != fence {
		// An authoritative update arrived in the interim. It wins.
		return
	}

	e.logger.Warn("no response from device, rolling back", zap.String("device", id.String()))
	e.store.Update(func(tx *store.Txn) {
		tx.SetDevice(id, entry.prev)
	})
	e.messages.Error("No response", "The device did not confirm the command.")
}
