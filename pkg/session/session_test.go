package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"p9e.in/veritrace/pkg/declaration"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestCreateStartsAtFirstStep(t *testing.T) {
	m := NewManager(zap.NewNop())
	snap := m.Create("user-1")

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, declaration.StepProduct, snap.Step)
	assert.Equal(t, declaration.NewRecord(), snap.Record)
	assert.Equal(t, 1, m.Len())
}

func TestOwnership(t *testing.T) {
	m := NewManager(zap.NewNop())
	snap := m.Create("alice")

	_, err := m.Get("bob", snap.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = m.With("bob", snap.ID, func(*declaration.Workflow) error { return nil })
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, m.Discard("bob", snap.ID), ErrForbidden)

	_, err = m.Get("alice", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithMutatesWorkflow(t *testing.T) {
	m := NewManager(zap.NewNop())
	snap := m.Create("alice")

	got, err := m.With("alice", snap.ID, func(w *declaration.Workflow) error {
		w.SetField(declaration.FieldProductName, "Cocoa Beans")
		w.Advance()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, declaration.StepSupplier, got.Step)
	assert.Equal(t, "Cocoa Beans", got.Record.ProductName)

	again, err := m.Get("alice", snap.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Record, again.Record)
}

func TestWithReturnsCallbackError(t *testing.T) {
	m := NewManager(zap.NewNop())
	snap := m.Create("alice")
	boom := errors.New("boom")

	got, err := m.With("alice", snap.ID, func(*declaration.Workflow) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, snap.ID, got.ID)
}

func TestWithSerialisesOperations(t *testing.T) {
	m := NewManager(zap.NewNop())
	snap := m.Create("alice")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.With("alice", snap.ID, func(w *declaration.Workflow) error {
				rec := w.Record()
				w.SetField(declaration.FieldAdditionalNotes, rec.AdditionalNotes+"x")
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := m.Get("alice", snap.ID)
	require.NoError(t, err)
	assert.Len(t, got.Record.AdditionalNotes, 50)
}

func TestListIsPerOwner(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(zap.NewNop(), WithClock(clock.Now))

	first := m.Create("alice")
	clock.Add(time.Minute)
	second := m.Create("alice")
	m.Create("bob")

	list := m.List("alice")
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Empty(t, m.List("carol"))
}

func TestDiscardRunsEvictHook(t *testing.T) {
	var evicted []string
	m := NewManager(zap.NewNop(), WithEvictHook(func(s Snapshot) { evicted = append(evicted, s.ID) }))
	snap := m.Create("alice")

	require.NoError(t, m.Discard("alice", snap.ID))
	assert.Equal(t, []string{snap.ID}, evicted)
	assert.Equal(t, 0, m.Len())

	assert.ErrorIs(t, m.Discard("alice", snap.ID), ErrNotFound)
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(zap.NewNop(), WithClock(clock.Now), WithTTL(time.Hour))

	idle := m.Create("alice")
	clock.Add(50 * time.Minute)
	active := m.Create("alice")
	clock.Add(20 * time.Minute)

	assert.Equal(t, 1, m.Sweep())

	_, err := m.Get("alice", idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get("alice", active.ID)
	assert.NoError(t, err)
}

func TestWithKeepsSessionAlive(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(zap.NewNop(), WithClock(clock.Now), WithTTL(time.Hour))
	snap := m.Create("alice")

	clock.Add(45 * time.Minute)
	_, err := m.With("alice", snap.ID, func(*declaration.Workflow) error { return nil })
	require.NoError(t, err)
	clock.Add(45 * time.Minute)

	assert.Equal(t, 0, m.Sweep())
}

func TestExpiryRechecksIdleTime(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []string
	m := NewManager(zap.NewNop(),
		WithClock(clock.Now),
		WithTTL(time.Hour),
		WithEvictHook(func(s Snapshot) { evicted = append(evicted, s.ID) }))
	snap := m.Create("alice")

	clock.Add(2 * time.Hour)
	cutoff := clock.Now().Add(-time.Hour)

	// The session is used after the sweep computed its cutoff.
	_, err := m.With("alice", snap.ID, func(*declaration.Workflow) error { return nil })
	require.NoError(t, err)

	m.mu.Lock()
	e := m.sessions[snap.ID]
	m.mu.Unlock()
	assert.False(t, m.evict(e, "expired", cutoff))
	assert.Empty(t, evicted)

	_, err = m.Get("alice", snap.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestFactoryReceivesOwnerAndID(t *testing.T) {
	var gotOwner, gotID string
	m := NewManager(zap.NewNop(), WithFactory(func(owner, id string) *declaration.Workflow {
		gotOwner, gotID = owner, id
		return declaration.New()
	}))
	snap := m.Create("alice")
	assert.Equal(t, "alice", gotOwner)
	assert.Equal(t, snap.ID, gotID)
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := &fakeClock{t: time.Now()}
	m := NewManager(zap.NewNop(),
		WithClock(clock.Now),
		WithTTL(time.Minute),
		WithSweepInterval(5*time.Millisecond))
	snap := m.Create("alice")
	clock.Add(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	_, err := m.Get("alice", snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
