package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/employeeinfo/internal/auth"
	"github.com/hitoshi/employeeinfo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionTable はauth.SessionFinderのテスト実装。
type sessionTable struct {
	mu     sync.Mutex
	owners map[string]string
	err    error
}

func (s *sessionTable) FindByID(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	owner, ok := s.owners[id]
	if !ok {
		return nil, nil
	}
	return &model.Session{ID: id, UserID: owner}, nil
}

func newTestRegistry(t *testing.T, sessions *sessionTable, store Store) (*Registry, *auth.SessionWatcher) {
	t.Helper()
	watcher := auth.NewSessionWatcher(sessions)
	r := NewRegistry(watcher, func() *Controller { return newTestController(store) }, nil, RegistryConfig{IdleTTL: time.Minute})
	t.Cleanup(r.Stop)
	return r, watcher
}

func TestForSession_LoadsOnFirstUse(t *testing.T) {
	store := newMemoryStore()
	store.seed("owner-1", validFields())
	r, watcher := newTestRegistry(t, &sessionTable{owners: map[string]string{"s1": "owner-1"}}, store)

	c, err := r.ForSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, StateSummary, c.State())
	assert.Equal(t, 1, watcher.SubscriberCount("s1"))

	again, err := r.ForSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.Equal(t, 1, store.callCount(opFetch), "2回目は再取得しない")
}

func TestForSession_SeparateControllersPerSession(t *testing.T) {
	store := newMemoryStore()
	r, _ := newTestRegistry(t, &sessionTable{owners: map[string]string{"s1": "owner-1", "s2": "owner-2"}}, store)

	c1, err := r.ForSession(context.Background(), "s1")
	require.NoError(t, err)
	c2, err := r.ForSession(context.Background(), "s2")
	require.NoError(t, err)

	assert.NotSame(t, c1, c2)
	assert.Equal(t, "owner-1", c1.View().OwnerID)
	assert.Equal(t, "owner-2", c2.View().OwnerID)
	assert.Equal(t, 2, r.Count())
}

func TestForSession_UnknownSessionIsRejected(t *testing.T) {
	r, watcher := newTestRegistry(t, &sessionTable{}, newMemoryStore())

	_, err := r.ForSession(context.Background(), "expired")
	requireCode(t, err, model.ErrCodeUnauthenticated)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, watcher.SubscriberCount("expired"))

	_, err = r.ForSession(context.Background(), "")
	requireCode(t, err, model.ErrCodeUnauthenticated)
}

func TestForSession_SubscribeFailure(t *testing.T) {
	r, _ := newTestRegistry(t, &sessionTable{err: errors.New("db down")}, newMemoryStore())

	_, err := r.ForSession(context.Background(), "s1")
	requireCode(t, err, model.ErrCodeStoreUnavailable)
	assert.Equal(t, 0, r.Count())
}

// TestSignOutPublish_DropsController はサインアウト通知でコントローラーが破棄されることを検証する。
func TestSignOutPublish_DropsController(t *testing.T) {
	store := newMemoryStore()
	store.seed("owner-1", validFields())
	r, watcher := newTestRegistry(t, &sessionTable{owners: map[string]string{"s1": "owner-1"}}, store)

	c, err := r.ForSession(context.Background(), "s1")
	require.NoError(t, err)

	watcher.Publish(context.Background(), "s1", "")

	assert.Equal(t, StateUnauthenticated, c.State())
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, watcher.SubscriberCount("s1"))
}

func TestForSession_ConcurrentFirstUseCreatesOneController(t *testing.T) {
	store := newMemoryStore()
	r, watcher := newTestRegistry(t, &sessionTable{owners: map[string]string{"s1": "owner-1"}}, store)

	var wg sync.WaitGroup
	results := make([]*Controller, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.ForSession(context.Background(), "s1")
			if err == nil {
				results[i] = c
			}
		}(i)
	}
	wg.Wait()

	for _, c := range results {
		require.NotNil(t, c)
		assert.Same(t, results[0], c)
	}
	assert.Equal(t, 1, watcher.SubscriberCount("s1"))
	assert.Equal(t, 1, store.callCount(opFetch))
}

func TestSweepIdle_RemovesOnlyIdleControllers(t *testing.T) {
	store := newMemoryStore()
	r, watcher := newTestRegistry(t, &sessionTable{owners: map[string]string{"old": "owner-1", "new": "owner-2"}}, store)

	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	_, err := r.ForSession(context.Background(), "old")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(50 * time.Second) }
	_, err = r.ForSession(context.Background(), "new")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(90 * time.Second) }
	removed := r.sweepIdle()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 0, watcher.SubscriberCount("old"))
	assert.Equal(t, 1, watcher.SubscriberCount("new"))
}

func TestRegistryStop_Idempotent(t *testing.T) {
	r := NewRegistry(auth.NewSessionWatcher(&sessionTable{}), func() *Controller {
		return newTestController(newMemoryStore())
	}, nil, RegistryConfig{IdleTTL: time.Minute, CleanupInterval: time.Hour})

	r.Stop()
	r.Stop()
}
