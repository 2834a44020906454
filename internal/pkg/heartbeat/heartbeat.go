package heartbeat

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/config"
	"github.com/vittapcode/homeboard/internal/pkg/model"
	"github.com/vittapcode/homeboard/internal/pkg/store"
)

// Tracker records when each device was last heard from, either via the
// heartbeat topic or any state message the decoder accepts.
type Tracker struct {
	mu   sync.Mutex
	seen map[model.DeviceID]time.Time
}

func NewTracker() *Tracker {
	return &Tracker{seen: map[model.DeviceID]time.Time{}}
}

func (t *Tracker) Touch(id model.DeviceID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[id] = time.Now()
}

func (t *Tracker) LastSeen(id model.DeviceID) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen, ok := t.seen[id]
	return seen, ok
}

// Sweeper periodically marks devices offline when they have been silent past
// the TTL. Status values are preserved, mirroring what a transport disconnect
// does to the whole fleet.
type Sweeper struct {
	cfg     *config.HeartbeatConfig
	store   *store.Store
	tracker *Tracker
	logger  *zap.Logger
	cron    *cron.Cron
}

func NewSweeper(cfg *config.HeartbeatConfig, st *store.Store, tracker *Tracker) *Sweeper {
	return &Sweeper{
		cfg:     cfg,
		store:   st,
		tracker: tracker,
		logger:  zap.L(),
		cron:    cron.New(),
	}
}

// Run blocks until Stop is called.
func (s *Sweeper) Run() error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Run()
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) Sweep() {
	cutoff := time.Now().Add(-s.cfg.TTL)
	stale := []model.DeviceID{}
	for id, state := range s.store.Snapshot().Devices {
		if !state.Online {
			continue
		}
		seen, ok := s.tracker.LastSeen(id)
		if ok && seen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return
	}
	s.logger.Warn("devices silent past heartbeat TTL", zap.Any("devices", stale))
	s.store.Update(func(tx *store.Txn) {
		for _, id := range stale {
			tx.SetOnline(id, false)
		}
	})
}
