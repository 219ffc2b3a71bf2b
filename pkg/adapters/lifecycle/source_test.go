package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moshango/Contract-review-sub001/pkg/adapters/lifecycle"
	"github.com/moshango/Contract-review-sub001/pkg/core"
)

func collect(t *testing.T, in []core.Event, kinds ...core.EventType) []lifecycle.RulesEvent {
	t.Helper()
	ch := make(chan core.Event, len(in))
	for _, e := range in {
		ch <- e
	}
	close(ch)

	src := lifecycle.NewSource(ch, kinds...)
	require.NoError(t, src.Start(context.Background()))

	var got []lifecycle.RulesEvent
	for e := range src.Events() {
		re, ok := e.(lifecycle.RulesEvent)
		require.True(t, ok, "unexpected event type %T", e)
		got = append(got, re)
	}
	return got
}

func TestSource(t *testing.T) {
	loadErr := errors.New("sheet missing")
	in := []core.Event{
		{Type: core.EventLoad, Source: "rules.csv", Rules: 3, Timestamp: 1714550400},
		{Type: core.EventModify, Source: "rules.csv"},
		{Type: core.EventLoadFailed, Source: "rules.csv", Err: loadErr},
		{Type: core.EventInvalidate, Source: "rules.csv"},
	}

	t.Run("Converts Every Event By Default", func(t *testing.T) {
		got := collect(t, in)
		require.Len(t, got, 4)

		assert.Equal(t, core.EventLoad, got[0].Kind)
		assert.Equal(t, 3, got[0].Rules)
		assert.Equal(t, time.Unix(1714550400, 0), got[0].At)
		assert.True(t, got[2].Failed())
		assert.ErrorIs(t, got[2].Err, loadErr)

		var lines []string
		for _, e := range got {
			lines = append(lines, e.String())
		}
		assert.Equal(t, []string{
			"rules rules.csv LOAD: 3 rule(s)",
			"rules rules.csv changed on disk",
			"rules rules.csv failed (LOAD_FAILED): sheet missing",
			"rules rules.csv invalidated",
		}, lines)
	})

	t.Run("Filters By Kind", func(t *testing.T) {
		got := collect(t, in, core.EventLoad, core.EventLoadFailed)
		require.Len(t, got, 2)
		assert.Equal(t, core.EventLoad, got[0].Kind)
		assert.Equal(t, core.EventLoadFailed, got[1].Kind)
	})

	t.Run("Stops With Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		src := lifecycle.NewSource(make(chan core.Event))
		require.NoError(t, src.Start(ctx))
		cancel()

		select {
		case _, ok := <-src.Events():
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("events channel not closed after cancel")
		}
	})
}
