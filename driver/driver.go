package driver

import (
	"errors"

	"github.com/root-talis/anzen/operation"
)

// Adapter identifies the database family a run targets. The safety rules
// only distinguish Postgres from everything else.
type Adapter rune

const (
	AdapterPostgres Adapter = 'p'
	AdapterOther    Adapter = 'o'
)

// ---

// Database exposes the server capabilities the rule engine gates on.
//
// ServerVersionCode encodes major.minor.patch as a single comparable
// integer: major*10000 + minor*100 + patch (110000 is 11.0.0).
type Database interface {
	Adapter() Adapter
	ServerVersionCode() (int64, error)
}

// Executor applies a permitted operation to the database. The safety engine
// never applies schema changes itself.
type Executor interface {
	Apply(op operation.Operation) error
}

var ErrInvalidServerVersion = errors.New("could not determine server version")
