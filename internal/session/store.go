package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/internal/view"
)

// Session is one visitor's screen state. Views outlive any single request.
type Session struct {
	ID        string
	Analyze   *view.AnalyzeView
	Dashboard *view.DashboardView

	lastSeen time.Time
}

// Factory builds the views of a new session.
type Factory func(id string) *Session

type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Logger        *zap.Logger
}

// Store keeps sessions in memory and drops those idle for longer than
// IdleTimeout. Fetch cycles still running on a dropped session finish into
// state nobody reads.
type Store struct {
	sessions    map[string]*Session
	mu          sync.Mutex
	idleTimeout time.Duration
	factory     Factory
	now         func() time.Time
	logger      *zap.Logger
	sweepTicker *time.Ticker
	done        chan struct{}
	stopOnce    sync.Once
}

func NewStore(cfg Config, factory Factory) *Store {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = time.Hour
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Store{
		sessions:    make(map[string]*Session),
		idleTimeout: cfg.IdleTimeout,
		factory:     factory,
		now:         time.Now,
		logger:      cfg.Logger,
		sweepTicker: time.NewTicker(cfg.SweepInterval),
		done:        make(chan struct{}),
	}

	go s.janitor()

	return s
}

// Get returns the live session for id, creating a fresh one under a new id
// when id is unknown or expired. created reports which happened.
func (s *Store) Get(id string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.sessions[id]; ok && now.Sub(existing.lastSeen) <= s.idleTimeout {
		existing.lastSeen = now
		return existing, false
	}

	newID := uuid.New().String()
	sess = s.factory(newID)
	sess.ID = newID
	sess.lastSeen = now
	s.sessions[newID] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	s.logger.Debug("Session created", zap.String("session_id", newID))
	return sess, true
}

// Exists reports whether id names a live session. It does not extend it.
func (s *Store) Exists(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[id]
	return ok && s.now().Sub(existing.lastSeen) <= s.idleTimeout
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops idle sessions and returns how many it removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idleTimeout {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	if removed > 0 {
		s.logger.Info("Idle sessions expired", zap.Int("removed", removed), zap.Int("remaining", len(s.sessions)))
	}
	return removed
}

func (s *Store) janitor() {
	for {
		select {
		case <-s.sweepTicker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}

func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		s.sweepTicker.Stop()
		close(s.done)
	})
}
