// Package core holds the contract-review domain: rules, review issues,
// clauses, the RuleSource port and the error taxonomy shared by adapters.
package core

import (
	"fmt"
	"time"
)

// EventType represents a change in the visible rule set.
type EventType string

const (
	EventLoad       EventType = "LOAD"
	EventReload     EventType = "RELOAD"
	EventInvalidate EventType = "INVALIDATE"
	EventLoadFailed EventType = "LOAD_FAILED"
	EventModify     EventType = "MODIFY"
)

// Event represents a change observed by the rule store or its watchers.
type Event struct {
	Type      EventType
	Source    string
	Rules     int
	Err       error
	Timestamp int64 // Unix timestamp
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, source string, rules int, err error) Event {
	return Event{Type: t, Source: source, Rules: rules, Err: err, Timestamp: time.Now().Unix()}
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Type, e.Source, e.Err)
	}
	return fmt.Sprintf("%s %s (%d rules)", e.Type, e.Source, e.Rules)
}
