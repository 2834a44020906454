package store

import (
	"maps"
	"sync"

	"github.com/vittapcode/homeboard/internal/pkg/model"
)

// Store owns the canonical device map, the sensor record and the connection
// flag. Mutations go through Update, which applies the whole transaction under
// the lock and then notifies subscribers exactly once. Subscribers receive no
// payload; they pull a fresh Snapshot themselves.
type Store struct {
	mu        sync.RWMutex
	devices   map[model.DeviceID]model.DeviceState
	sensors   model.SensorData
	connected bool

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func()
}

// Snapshot is a detached read-only copy of the store contents.
type Snapshot struct {
	Connected bool                                 `json:"connected"`
	Devices   map[model.DeviceID]model.DeviceState `json:"devices"`
	Sensors   model.SensorData                     `json:"sensors"`
}

func New() *Store {
	devices := make(map[model.DeviceID]model.DeviceState, len(model.DeviceIDs()))
	for _, id := range model.DeviceIDs() {
		devices[id] = model.DeviceState{Status: model.StatusUnknown, Online: false}
	}
	return &Store{
		devices: devices,
		subs:    map[int]func(){},
	}
}

// Txn is the mutable view handed to Update callbacks. It must not escape the
// callback.
type Txn struct {
	s *Store
}

func (t *Txn) Device(id model.DeviceID) model.DeviceState {
	if state, ok := t.s.devices[id]; ok {
		return state
	}
	return model.DeviceState{Status: model.StatusUnknown, Online: false}
}

func (t *Txn) SetDevice(id model.DeviceID, state model.DeviceState) {
	t.s.devices[id] = state
}

func (t *Txn) Sensors() *model.SensorData {
	return &t.s.sensors
}

// SetConnected flips the transport flag and the liveness of every device.
// Status and color are preserved; only the online flag changes.
func (t *Txn) SetConnected(connected bool) {
	t.s.connected = connected
	for id, state := range t.s.devices {
		state.Online = connected
		t.s.devices[id] = state
	}
}

// SetOnline flips a single device's liveness without touching its status or
// its fencing timestamp.
func (t *Txn) SetOnline(id model.DeviceID, online bool) {
	state := t.Device(id)
	state.Online = online
	t.s.devices[id] = state
}

// Update applies fn atomically, then notifies every subscriber once.
func (s *Store) Update(fn func(*Txn)) {
	s.mu.Lock()
	fn(&Txn{s: s})
	s.mu.Unlock()
	s.Notify()
}

// Notify wakes every subscriber. The decoder calls this directly for messages
// that fan out without mutating state, so consumers still observe one
// notification per accepted message.
func (s *Store) Notify() {
	s.subMu.Lock()
	listeners := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Subscribe registers a change listener and returns its disposer.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Device returns the current state for id, defaulting to unknown/offline for
// identifiers that have not been initialised.
func (s *Store) Device(id model.DeviceID) model.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.devices[id]; ok {
		return state
	}
	return model.DeviceState{Status: model.StatusUnknown, Online: false}
}

func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Connected: s.connected,
		Devices:   maps.Clone(s.devices),
		Sensors:   cloneSensors(s.sensors),
	}
}

func cloneSensors(in model.SensorData) model.SensorData {
	out := model.SensorData{}
	if in.Gas != nil {
		gas := *in.Gas
		out.Gas = &gas
	}
	if in.Fire != nil {
		fire := *in.Fire
		out.Fire = &fire
	}
	if in.Light != nil {
		light := *in.Light
		out.Light = &light
	}
	if in.Rain != nil {
		rain := *in.Rain
		out.Rain = &rain
	}
	if in.Dryer != nil {
		dryer := *in.Dryer
		out.Dryer = &dryer
	}
	return out
}
