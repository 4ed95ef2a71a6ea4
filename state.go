package anzen

import (
	"github.com/root-talis/anzen/migration"
)

// RunState is the mutable per-run state the rule engine consults. One run
// is one goroutine; the state is deliberately unsynchronized.
type RunState struct {
	Direction migration.Direction
	Version   migration.Version

	overrideActive bool
	newTables      map[string]struct{}
}

func NewRunState(direction migration.Direction, version migration.Version) *RunState {
	return &RunState{
		Direction: direction,
		Version:   version,
		newTables: make(map[string]struct{}),
	}
}

// ---

// AddNewTable records a table created earlier in this same run. Index
// builds on such tables are safe regardless of adapter.
func (s *RunState) AddNewTable(table string) {
	s.newTables[table] = struct{}{}
}

func (s *RunState) IsNewTable(table string) bool {
	_, ok := s.newTables[table]
	return ok
}

func (s *RunState) OverrideActive() bool {
	return s.overrideActive
}

// SafetyAssured runs fn with all safety checks suspended. The previous
// override value is restored on every exit path, including a panic inside
// fn, so nested blocks unwind correctly.
func (s *RunState) SafetyAssured(fn func() error) error {
	previous := s.overrideActive
	s.overrideActive = true

	defer func() {
		s.overrideActive = previous
	}()

	return fn()
}
