package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/moshango/Contract-review-sub001/pkg/core"
)

type watchWorker struct {
	*worker.BaseWorker
	source    *FileSource
	target    core.Reloader
	path      string
	pattern   string
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(source *FileSource, target core.Reloader, path string, events chan<- core.Event) *watchWorker {
	pattern := source.config.WatchPattern
	if pattern == "" {
		pattern = filepath.Base(path)
	}
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("rules-watcher"),
		source:     source,
		target:     target,
		path:       path,
		pattern:    pattern,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Editors and atomic writers replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.watcher = watcher
	w.debouncer = newDebouncer(w.source.config.WatchDebounce, func() { w.reload(runCtx) })
	w.source.setWatcherActive(true)

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"path":              w.path,
		}
	})
}

func (w *watchWorker) shouldIgnore(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, TempFilePrefix) {
		return true
	}
	if ok, err := doublestar.Match(w.pattern, base); err != nil || !ok {
		return true
	}
	return !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove)
}

// reload runs on the debouncer goroutine once writes settle.
func (w *watchWorker) reload(ctx context.Context) {
	logger := w.source.config.Logger

	changed, err := w.source.Changed()
	if err == nil && !changed {
		logger.Debug("rule file touched without content change", "path", w.path)
		return
	}

	set, err := w.target.Reload(ctx)
	if err != nil {
		w.source.handleError(fmt.Errorf("reload %s: %w", w.path, err))
		w.sendEvent(ctx, core.NewEvent(core.EventLoadFailed, w.path, 0, err))
		return
	}
	logger.Info("rules reloaded", "path", w.path, "rules", len(set))
	w.sendEvent(ctx, core.NewEvent(core.EventReload, w.path, len(set), nil))
}

// sendEvent delivers an event, protecting against channel closure during
// shutdown.
func (w *watchWorker) sendEvent(ctx context.Context, event core.Event) {
	if w.events == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	select {
	case w.events <- event:
	case <-ctx.Done():
	}
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.source.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", panicErr, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", panicErr)
			}
			err = panicErr
		}
	}()
	defer w.source.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// In-flight reloads must finish before the events channel can be closed.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	logger := w.source.config.Logger
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			logger.Debug("event received", "name", event.Name, "op", event.Op.String())
			if w.shouldIgnore(event) {
				continue
			}
			w.debouncer.trigger()

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.source.handleError(fmt.Errorf("fsnotify: %w", wErr))
		}
	}
}

// Watch supervises a watcher on the source's rule file and reloads target
// whenever its content changes. Reload outcomes are published on the
// returned channel, which is closed after ctx is done and the watcher has
// stopped.
func Watch(ctx context.Context, source *FileSource, target core.Reloader) (<-chan core.Event, error) {
	path, err := source.Resolve()
	if err != nil {
		return nil, err
	}

	events := make(chan core.Event, 16)
	spec := supervisor.Spec{
		Name: "rules-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newWatchWorker(source, target, path, events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     5 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("rules-watch", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	lifecycle.Go(context.Background(), func(context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		defer close(events)
		return sup.Stop(stopCtx)
	}, lifecycle.WithErrorHandler(func(err error) {
		source.handleError(fmt.Errorf("stop watcher: %w", err))
	}))

	return events, nil
}

// Watch implements core.Watchable.
func (s *FileSource) Watch(ctx context.Context, target core.Reloader) (<-chan core.Event, error) {
	return Watch(ctx, s, target)
}

var _ core.Watchable = (*FileSource)(nil)
