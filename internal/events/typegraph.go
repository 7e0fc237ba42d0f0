package events

import "time"

// TypeRegistered is emitted after a type definition is stored in a registry.
type TypeRegistered struct {
	Name     string
	Kind     string
	Replaced bool
}

// InterfacesRegistered is emitted after a RegisterInterfaces call.
// Added counts the pairs that were new to the edge set.
type InterfacesRegistered struct {
	Interfaces   []string
	Implementers []string
	Added        int
}

// GraphFrozen is emitted once per registry when the type graph is resolved.
type GraphFrozen struct {
	Types      int
	Edges      int
	Violations int
	Duration   time.Duration
	At         time.Time
}

// SchemaReloaded is emitted after a watcher triggered rebuild, successful or not.
type SchemaReloaded struct {
	Trigger  string
	Err      error
	Duration time.Duration
	At       time.Time
}
