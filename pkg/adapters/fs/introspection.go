package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// SourceState exposes internal state for observability.
type SourceState struct {
	Path          string       `json:"path"`
	Root          string       `json:"root"`
	Candidates    []string     `json:"candidates,omitempty"`
	Decoders      []string     `json:"decoders"`
	Loads         int          `json:"loads"`
	LastLoad      *time.Time   `json:"last_load,omitempty"`
	Fingerprint   *Fingerprint `json:"fingerprint,omitempty"`
	WatcherActive bool         `json:"watcher_active"`
}

// State implements introspection.Introspectable.
func (s *FileSource) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := SourceState{
		Path:          s.resolved,
		Root:          s.config.Root,
		Candidates:    s.config.Candidates,
		Decoders:      Extensions(s.decoders),
		Loads:         s.loads,
		LastLoad:      s.lastLoad,
		WatcherActive: s.watcherActive,
	}
	if state.Path == "" {
		state.Path = s.config.Path
	}
	if s.last != nil {
		fp := *s.last
		state.Fingerprint = &fp
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *FileSource) ComponentType() string {
	return "file-rule-source"
}

var _ introspection.Introspectable = (*FileSource)(nil)
var _ introspection.Component = (*FileSource)(nil)

func (s *FileSource) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}
