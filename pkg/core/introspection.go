package core

import (
	"github.com/aretw0/introspection"
)

// ComponentType names v for state reports. Values that implement
// introspection.Component report their own type.
func ComponentType(v any, fallback string) string {
	if v == nil {
		return "none"
	}
	if comp, ok := v.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return fallback
}

// StateOf returns v's introspection state, or nil when v has none.
func StateOf(v any) any {
	if in, ok := v.(introspection.Introspectable); ok {
		return in.State()
	}
	return nil
}
