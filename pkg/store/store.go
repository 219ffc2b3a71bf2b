// Package store caches the rule set produced by a core.RuleSource.
//
// The cache is a single slot holding an immutable snapshot. Loads are
// single-flight: concurrent callers on a cold cache share one parse. A new
// snapshot is built entirely off to the side and published with an atomic
// pointer swap, so readers never observe a partially built set.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/introspection"
	"golang.org/x/sync/singleflight"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

const flightKey = "rules"

type snapshot struct {
	rules    core.RuleSet
	loadedAt time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvents publishes load, reload and invalidate events on ch. Sends never
// block; events are dropped when ch is full.
func WithEvents(ch chan<- core.Event) Option {
	return func(s *Store) {
		s.events = ch
	}
}

// Store is the process-wide rule cache.
type Store struct {
	source core.RuleSource
	logger *slog.Logger
	events chan<- core.Event

	current    atomic.Pointer[snapshot]
	generation atomic.Uint64
	group      singleflight.Group

	mu        sync.Mutex // guards publish vs invalidate, and the counters
	loads     int
	lastError error
}

// New creates a store over source. Nothing is loaded until the first Load.
func New(source core.RuleSource, opts ...Option) *Store {
	s := &Store{
		source: source,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the cached rule set, parsing the source on a cold cache.
// Concurrent cold callers share one parse, run under the context of the
// caller that started it. A waiter whose context ends stops waiting and the
// parse goes on. If the starting caller's context ends the parse aborts and
// each remaining waiter starts a new one.
func (s *Store) Load(ctx context.Context) (core.RuleSet, error) {
	for {
		if snap := s.current.Load(); snap != nil {
			return snap.rules.Clone(), nil
		}

		set, err := s.fill(ctx, core.EventLoad)
		if err == nil {
			return set.Clone(), nil
		}
		// The leader's context ended but ours did not: take over.
		if isContextErr(err) && ctx.Err() == nil {
			continue
		}
		return nil, err
	}
}

// Reload parses the source and swaps the result in. On failure the previous
// snapshot, if any, stays visible.
func (s *Store) Reload(ctx context.Context) (core.RuleSet, error) {
	s.group.Forget(flightKey)
	set, err := s.fill(ctx, core.EventReload)
	if err != nil {
		return nil, err
	}
	return set.Clone(), nil
}

// Invalidate drops the cached snapshot. The next Load parses again. A load
// already in flight completes for its waiters but is not published.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.generation.Add(1)
	s.current.Store(nil)
	s.mu.Unlock()
	s.group.Forget(flightKey)
	s.logger.Debug("rule cache invalidated", "source", s.source.Name())
	s.emit(core.NewEvent(core.EventInvalidate, s.source.Name(), 0, nil))
}

// Cached returns the current snapshot without loading.
func (s *Store) Cached() (core.RuleSet, bool) {
	snap := s.current.Load()
	if snap == nil {
		return nil, false
	}
	return snap.rules.Clone(), true
}

func (s *Store) fill(ctx context.Context, kind core.EventType) (core.RuleSet, error) {
	gen := s.generation.Load()
	ch := s.group.DoChan(flightKey, func() (any, error) {
		return s.build(ctx, gen, kind)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(core.RuleSet), nil
	case <-ctx.Done():
		return nil, &core.RuleLoadError{Source: s.source.Name(), Err: ctx.Err()}
	}
}

// build runs inside the single flight. It publishes only when no
// invalidation happened since the flight started.
func (s *Store) build(ctx context.Context, gen uint64, kind core.EventType) (core.RuleSet, error) {
	start := time.Now()
	set, err := s.source.Load(ctx)
	if err == nil && len(set) == 0 {
		err = core.ErrNoRules
	}
	if err != nil {
		var loadErr *core.RuleLoadError
		if !errors.As(err, &loadErr) {
			err = &core.RuleLoadError{Source: s.source.Name(), Err: err}
		}
		s.record(err)
		if !isContextErr(err) {
			s.logger.Error("rule load failed", "source", s.source.Name(), "error", err)
			s.emit(core.NewEvent(core.EventLoadFailed, s.source.Name(), 0, err))
		}
		return nil, err
	}

	if !s.publish(&snapshot{rules: set, loadedAt: time.Now()}, gen) {
		s.logger.Debug("discarding rules loaded before invalidation", "source", s.source.Name())
	}
	s.record(nil)

	s.logger.Info("rules loaded",
		"source", s.source.Name(),
		"rules", len(set),
		"duration", time.Since(start),
	)
	s.emit(core.NewEvent(kind, s.source.Name(), len(set), nil))
	return set, nil
}

// publish swaps snap in unless the cache was invalidated after gen was read.
func (s *Store) publish(snap *snapshot, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen {
		return false
	}
	s.current.Store(snap)
	return true
}

func (s *Store) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	s.lastError = err
}

func (s *Store) emit(e core.Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- e:
	default:
		s.logger.Debug("dropping rule event", "event", e.String())
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// State is the introspection view of a Store.
type State struct {
	Source     string     `json:"source"`
	SourceType string     `json:"source_type"`
	Cached     bool       `json:"cached"`
	Rules      int        `json:"rules"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	Loads      int        `json:"loads"`
	LastError  string     `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	st := State{
		Source:     s.source.Name(),
		SourceType: core.ComponentType(s.source, fmt.Sprintf("%T", s.source)),
	}
	if snap := s.current.Load(); snap != nil {
		t := snap.loadedAt
		st.Cached = true
		st.Rules = len(snap.rules)
		st.LoadedAt = &t
	}

	s.mu.Lock()
	st.Loads = s.loads
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	s.mu.Unlock()
	return st
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "rule-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
