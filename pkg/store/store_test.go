package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/moshango/Contract-review-sub001/pkg/core"
	"github.com/moshango/Contract-review-sub001/pkg/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource counts parses. When gate is set, Load blocks until the gate is
// closed or ctx ends.
type fakeSource struct {
	mu      sync.Mutex
	rules   core.RuleSet
	err     error
	gate    chan struct{}
	entered chan struct{}
	calls   atomic.Int32
}

func newFakeSource(n int) *fakeSource {
	src := &fakeSource{}
	src.setRules(n)
	return src
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) setRules(n int) {
	set := make(core.RuleSet, n)
	for i := range set {
		set[i] = core.ReviewRule{ID: string(rune('a' + i)), Risk: "low", Checklist: "c"}
	}
	f.mu.Lock()
	f.rules, f.err = set, nil
	f.mu.Unlock()
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) block() {
	f.mu.Lock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 16)
	f.mu.Unlock()
}

func (f *fakeSource) release() {
	f.mu.Lock()
	close(f.gate)
	f.mu.Unlock()
}

func (f *fakeSource) Load(ctx context.Context) (core.RuleSet, error) {
	f.calls.Add(1)

	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &core.RuleLoadError{Source: f.Name(), Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rules.Clone(), nil
}

func waitEntered(t *testing.T, f *fakeSource) {
	t.Helper()
	select {
	case <-f.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for source load to start")
	}
}

func TestStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Parses Once Then Serves Cache", func(t *testing.T) {
		src := newFakeSource(3)
		s := store.New(src)

		_, cached := s.Cached()
		assert.False(t, cached)

		first, err := s.Load(ctx)
		require.NoError(t, err)
		second, err := s.Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("Returned Set Is A Copy", func(t *testing.T) {
		s := store.New(newFakeSource(2))

		set, err := s.Load(ctx)
		require.NoError(t, err)
		set[0].ID = "mutated"

		again, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a", again[0].ID)
	})

	t.Run("Nested Slices Are Not Shared With Cache", func(t *testing.T) {
		src := &fakeSource{rules: core.RuleSet{
			{ID: "pay", Risk: "high", Checklist: "c", Keywords: []string{"付款"}, ContractTypes: []string{"采购合同"}},
		}}
		s := store.New(src)

		set, err := s.Load(ctx)
		require.NoError(t, err)
		set[0].Keywords[0] = "HACKED"
		set[0].ContractTypes[0] = "HACKED"

		again, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"付款"}, again[0].Keywords)
		assert.Equal(t, []string{"采购合同"}, again[0].ContractTypes)

		cached, ok := s.Cached()
		require.True(t, ok)
		cached[0].Keywords[0] = "HACKED"

		reloaded, err := s.Reload(ctx)
		require.NoError(t, err)
		reloaded[0].Keywords[0] = "HACKED"

		again, err = s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"付款"}, again[0].Keywords)
	})

	t.Run("Concurrent Cold Loads Share One Parse", func(t *testing.T) {
		src := newFakeSource(5)
		src.block()
		s := store.New(src)

		const callers = 32
		var wg sync.WaitGroup
		results := make([]int, callers)
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				set, err := s.Load(ctx)
				results[i], errs[i] = len(set), err
			}(i)
		}

		waitEntered(t, src)
		time.Sleep(20 * time.Millisecond)
		src.release()
		wg.Wait()

		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, 5, results[i])
		}
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("Failure Is Structured And Not Cached", func(t *testing.T) {
		src := newFakeSource(1)
		src.fail(&core.RuleLoadError{Source: "fake", Row: 2, Field: "checklist", Err: core.ErrEmptyChecklist})
		s := store.New(src)

		set, err := s.Load(ctx)
		assert.Nil(t, set)
		var loadErr *core.RuleLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, 2, loadErr.Row)

		_, cached := s.Cached()
		assert.False(t, cached)

		src.setRules(1)
		set, err = s.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, set, 1)
		assert.Equal(t, int32(2), src.calls.Load())
	})

	t.Run("Plain Errors Are Wrapped", func(t *testing.T) {
		src := newFakeSource(1)
		src.fail(errors.New("disk on fire"))

		_, err := store.New(src).Load(ctx)
		var loadErr *core.RuleLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "fake", loadErr.Source)
	})

	t.Run("Empty Set Is A Failure", func(t *testing.T) {
		_, err := store.New(newFakeSource(0)).Load(ctx)
		assert.ErrorIs(t, err, core.ErrNoRules)
	})

	t.Run("Waiter Leaves On Own Deadline", func(t *testing.T) {
		src := newFakeSource(2)
		src.block()
		s := store.New(src)

		leaderDone := make(chan error, 1)
		go func() {
			_, err := s.Load(ctx)
			leaderDone <- err
		}()
		waitEntered(t, src)

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := s.Load(short)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		src.release()
		require.NoError(t, <-leaderDone)
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("Waiter Takes Over From Canceled Leader", func(t *testing.T) {
		src := newFakeSource(2)
		src.block()
		s := store.New(src)

		leaderCtx, cancelLeader := context.WithCancel(ctx)
		leaderDone := make(chan error, 1)
		go func() {
			_, err := s.Load(leaderCtx)
			leaderDone <- err
		}()
		waitEntered(t, src)

		followerDone := make(chan error, 1)
		go func() {
			set, err := s.Load(ctx)
			if err == nil && len(set) != 2 {
				err = errors.New("unexpected rule count")
			}
			followerDone <- err
		}()
		time.Sleep(20 * time.Millisecond)

		cancelLeader()
		assert.ErrorIs(t, <-leaderDone, context.Canceled)

		waitEntered(t, src)
		src.release()
		require.NoError(t, <-followerDone)
		// The aborted parse and the follower's own.
		assert.Equal(t, int32(2), src.calls.Load())
	})
}

func TestStore_Invalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Next Load Re-parses", func(t *testing.T) {
		src := newFakeSource(2)
		s := store.New(src)

		_, err := s.Load(ctx)
		require.NoError(t, err)

		s.Invalidate()
		_, cached := s.Cached()
		assert.False(t, cached)

		src.setRules(4)
		set, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, set, 4)
		assert.Equal(t, int32(2), src.calls.Load())
	})

	t.Run("In Flight Load Is Not Published", func(t *testing.T) {
		src := newFakeSource(2)
		src.block()
		s := store.New(src)

		done := make(chan core.RuleSet, 1)
		go func() {
			set, _ := s.Load(ctx)
			done <- set
		}()
		waitEntered(t, src)

		s.Invalidate()
		src.release()

		assert.Len(t, <-done, 2)
		_, cached := s.Cached()
		assert.False(t, cached)
	})
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("Swaps In New Set", func(t *testing.T) {
		src := newFakeSource(2)
		s := store.New(src)
		_, err := s.Load(ctx)
		require.NoError(t, err)

		src.setRules(3)
		set, err := s.Reload(ctx)
		require.NoError(t, err)
		assert.Len(t, set, 3)

		cached, ok := s.Cached()
		require.True(t, ok)
		assert.Len(t, cached, 3)
	})

	t.Run("Failure Keeps Previous Set", func(t *testing.T) {
		src := newFakeSource(2)
		s := store.New(src)
		_, err := s.Load(ctx)
		require.NoError(t, err)

		src.fail(&core.RuleLoadError{Source: "fake", Err: core.ErrRulesNotFound})
		_, err = s.Reload(ctx)
		assert.ErrorIs(t, err, core.ErrRulesNotFound)

		set, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, set, 2)

		state, ok := s.State().(store.State)
		require.True(t, ok)
		assert.True(t, state.Cached)
		assert.Equal(t, 2, state.Rules)
		assert.Equal(t, 2, state.Loads)
		assert.Contains(t, state.LastError, "rule resource not found")
	})

	t.Run("Readers See Whole Sets During Reload", func(t *testing.T) {
		src := newFakeSource(2)
		s := store.New(src)
		_, err := s.Load(ctx)
		require.NoError(t, err)

		stop := make(chan struct{})
		var wg sync.WaitGroup
		var bad atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					set, err := s.Load(ctx)
					if err != nil || (len(set) != 2 && len(set) != 6) {
						bad.Add(1)
					}
				}
			}()
		}

		for i := 0; i < 20; i++ {
			if i%2 == 0 {
				src.setRules(6)
			} else {
				src.setRules(2)
			}
			_, err := s.Reload(ctx)
			require.NoError(t, err)
		}
		close(stop)
		wg.Wait()

		assert.Zero(t, bad.Load())
	})
}

func TestStore_Events(t *testing.T) {
	events := make(chan core.Event, 8)
	s := store.New(newFakeSource(2), store.WithEvents(events))

	_, err := s.Load(context.Background())
	require.NoError(t, err)
	s.Invalidate()

	first := <-events
	assert.Equal(t, core.EventLoad, first.Type)
	assert.Equal(t, 2, first.Rules)

	second := <-events
	assert.Equal(t, core.EventInvalidate, second.Type)
}
