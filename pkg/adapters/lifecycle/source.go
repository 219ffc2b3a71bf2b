// Package lifecycle publishes rule store events on a lifecycle.Source so
// applications supervised by aretw0/lifecycle can react to rule reloads.
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

// RulesEvent is the lifecycle form of a rule store event.
type RulesEvent struct {
	Kind   core.EventType
	Source string
	Rules  int
	Err    error
	At     time.Time
}

func (e RulesEvent) String() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("rules %s failed (%s): %v", e.Source, e.Kind, e.Err)
	case e.Kind == core.EventInvalidate:
		return fmt.Sprintf("rules %s invalidated", e.Source)
	case e.Kind == core.EventModify:
		return fmt.Sprintf("rules %s changed on disk", e.Source)
	default:
		return fmt.Sprintf("rules %s %s: %d rule(s)", e.Source, e.Kind, e.Rules)
	}
}

// Failed reports whether the event carries a load error.
func (e RulesEvent) Failed() bool { return e.Err != nil }

func convert(e core.Event) RulesEvent {
	return RulesEvent{
		Kind:   e.Type,
		Source: e.Source,
		Rules:  e.Rules,
		Err:    e.Err,
		At:     time.Unix(e.Timestamp, 0),
	}
}

type ruleSource struct {
	events <-chan core.Event
	kinds  []core.EventType
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source of RulesEvent values read from
// events. When kinds is non-empty only those event types pass. The source
// closes when events closes or the start context ends.
func NewSource(events <-chan core.Event, kinds ...core.EventType) lifecycle.Source {
	return &ruleSource{
		events: events,
		kinds:  kinds,
		out:    make(chan lifecycle.Event),
	}
}

func (s *ruleSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *ruleSource) accepts(t core.EventType) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, t)
}

func (s *ruleSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if !s.accepts(e.Type) {
					continue
				}
				select {
				case s.out <- convert(e):
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
