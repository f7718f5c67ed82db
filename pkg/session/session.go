// Package session keeps the in-progress declaration workflows of signed-in
// users. Each session belongs to exactly one owner and its workflow is only
// ever touched under the session's lock.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"p9e.in/veritrace/pkg/declaration"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrForbidden = errors.New("session belongs to another user")
)

// Factory builds the workflow backing a new session.
type Factory func(owner, id string) *declaration.Workflow

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID        string             `json:"id"`
	Owner     string             `json:"-"`
	Step      declaration.Step   `json:"step"`
	Record    declaration.Record `json:"record"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type entry struct {
	mu        sync.Mutex
	id        string
	owner     string
	workflow  *declaration.Workflow
	createdAt time.Time
	updatedAt time.Time
	closed    bool
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		ID:        e.id,
		Owner:     e.owner,
		Step:      e.workflow.Step(),
		Record:    e.workflow.Record(),
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
	}
}

// Manager maps session ids to workflows.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	log     *zap.Logger
	ttl     time.Duration
	sweep   time.Duration
	now     func() time.Time
	newID   func() string
	factory Factory
	onEvict func(Snapshot)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets how long a session may stay idle before the reaper drops it.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithSweepInterval sets how often Run looks for idle sessions.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) { m.sweep = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithFactory(f Factory) Option {
	return func(m *Manager) { m.factory = f }
}

// WithEvictHook registers fn to run after a session is discarded or expires.
func WithEvictHook(fn func(Snapshot)) Option {
	return func(m *Manager) { m.onEvict = fn }
}

// NewManager creates an empty manager. Sessions expire after two idle hours
// unless WithTTL says otherwise.
func NewManager(log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		log:      log,
		ttl:      2 * time.Hour,
		now:      time.Now,
		newID:    uuid.NewString,
		factory: func(string, string) *declaration.Workflow {
			return declaration.New()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.sweep <= 0 {
		m.sweep = m.ttl / 4
		if m.sweep < time.Second {
			m.sweep = time.Second
		}
	}
	return m
}

// Create opens a new session for owner positioned on step 1 with an empty
// record.
func (m *Manager) Create(owner string) Snapshot {
	id := m.newID()
	now := m.now()
	e := &entry{
		id:        id,
		owner:     owner,
		workflow:  m.factory(owner, id),
		createdAt: now,
		updatedAt: now,
	}

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()

	m.log.Info("session created", zap.String("session", id), zap.String("owner", owner))
	return e.snapshot()
}

func (m *Manager) lookup(owner, id string) (*entry, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if e.owner != owner {
		return nil, ErrForbidden
	}
	return e, nil
}

// Get returns a snapshot of one of owner's sessions.
func (m *Manager) Get(owner, id string) (Snapshot, error) {
	var snap Snapshot
	err := m.view(owner, id, func(e *entry) { snap = e.snapshot() })
	return snap, err
}

func (m *Manager) view(owner, id string, fn func(*entry)) error {
	e, err := m.lookup(owner, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrNotFound
	}
	fn(e)
	return nil
}

// With runs fn against the session's workflow while holding the session
// lock, then returns the resulting snapshot. Operations on one session are
// serialised; different sessions proceed in parallel.
func (m *Manager) With(owner, id string, fn func(*declaration.Workflow) error) (Snapshot, error) {
	var (
		snap  Snapshot
		fnErr error
	)
	err := m.view(owner, id, func(e *entry) {
		fnErr = fn(e.workflow)
		e.updatedAt = m.now()
		snap = e.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, fnErr
}

// List returns owner's sessions, oldest first.
func (m *Manager) List(owner string) []Snapshot {
	m.mu.Lock()
	var mine []*entry
	for _, e := range m.sessions {
		if e.owner == owner {
			mine = append(mine, e)
		}
	}
	m.mu.Unlock()

	out := []Snapshot{}
	for _, e := range mine {
		e.mu.Lock()
		if !e.closed {
			out = append(out, e.snapshot())
		}
		e.mu.Unlock()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Discard closes one of owner's sessions.
func (m *Manager) Discard(owner, id string) error {
	e, err := m.lookup(owner, id)
	if err != nil {
		return err
	}
	m.evict(e, "discarded", time.Time{})
	return nil
}

// evict closes e. A non-zero idleBefore only closes e if it has not been
// touched since then, checked under the session lock.
func (m *Manager) evict(e *entry, reason string, idleBefore time.Time) bool {
	e.mu.Lock()
	if e.closed || (!idleBefore.IsZero() && !e.updatedAt.Before(idleBefore)) {
		e.mu.Unlock()
		return false
	}
	e.closed = true
	snap := e.snapshot()
	e.mu.Unlock()

	m.mu.Lock()
	if m.sessions[e.id] == e {
		delete(m.sessions, e.id)
	}
	m.mu.Unlock()

	m.log.Info("session closed",
		zap.String("session", e.id),
		zap.String("owner", e.owner),
		zap.String("reason", reason))
	if m.onEvict != nil {
		m.onEvict(snap)
	}
	return true
}

// Len is the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes every session idle for longer than the TTL and returns how
// many it closed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	all := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		all = append(all, e)
	}
	m.mu.Unlock()

	closed := 0
	for _, e := range all {
		if m.evict(e, "expired", cutoff) {
			closed++
		}
	}
	return closed
}

// Run sweeps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.log.Info("session reaper started", zap.Duration("ttl", m.ttl), zap.Duration("interval", m.sweep))

	ticker := time.NewTicker(m.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("session reaper stopped")
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.log.Info("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}
