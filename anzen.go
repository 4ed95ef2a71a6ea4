package anzen

import (
	"fmt"

	"github.com/root-talis/anzen/driver"
	"github.com/root-talis/anzen/migration"
	"github.com/root-talis/anzen/operation"
)

// ---

// Anzen guards one migration run: every schema-change operation passes
// through Check before the external executor is allowed to apply it.
type Anzen interface {
	Check(op operation.Operation) (Decision, error)
	Apply(op operation.Operation) error
	SafetyAssured(fn func() error) error
	State() *RunState
}

// Decision is the verdict for a single operation: either proceed, or block
// the whole run with a diagnostic. Policy marks verdicts sourced from a
// custom check rather than the built-in catalog.
type Decision struct {
	Block      bool
	Policy     bool
	Diagnostic *Diagnostic

	err error
}

// ---

type anzenImpl struct {
	database driver.Database
	executor driver.Executor
	config   Config
	state    *RunState

	ctx      Context
	ctxReady bool
}

// ---

// New builds the safety engine for a single migration run. Configuration
// defects surface here, never during evaluation.
func New(
	database driver.Database,
	executor driver.Executor,
	run migration.Migration,
	direction migration.Direction,
	config Config,
) (Anzen, error) {
	if err := validateCatalog(); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &anzenImpl{
		database: database,
		executor: executor,
		config:   config,
		state:    NewRunState(direction, run.Version),
	}, nil
}

// ---

func (a *anzenImpl) State() *RunState {
	return a.state
}

func (a *anzenImpl) SafetyAssured(fn func() error) error {
	return a.state.SafetyAssured(fn)
}

// Check evaluates one operation without applying it. Exempt runs skip the
// capability lookup entirely, so a pure rollback never touches the
// database.
func (a *anzenImpl) Check(op operation.Operation) (Decision, error) {
	if exempt(a.state, a.config) {
		return Decision{}, nil
	}

	ctx, err := a.context()
	if err != nil {
		return Decision{}, err
	}

	return Evaluate(op, a.state, ctx, a.config), nil
}

// Apply evaluates the operation and, when permitted, forwards it to the
// executor, records run-state updates and issues any follow-up
// maintenance. A Block verdict halts the run with the matching error type.
func (a *anzenImpl) Apply(op operation.Operation) error {
	decision, err := a.Check(op)
	if err != nil {
		return err
	}

	if decision.Block {
		if decision.Policy {
			return &PolicyViolationError{Diagnostic: *decision.Diagnostic, Err: decision.err}
		}

		return &UnsafeOperationError{Diagnostic: *decision.Diagnostic}
	}

	if err := a.executor.Apply(op); err != nil {
		return fmt.Errorf("failed to apply %s on table \"%s\": %w", op.Kind, op.Table, err)
	}

	if op.Kind == operation.CreateTable {
		a.state.AddNewTable(op.Table)
	}

	return a.maintain(op)
}

// maintain issues post-hoc maintenance for specific kinds: a statistics
// refresh after an index build on Postgres. Maintenance commands come from
// the engine itself and are not re-evaluated.
func (a *anzenImpl) maintain(op operation.Operation) error {
	if op.Kind != operation.AddIndex || a.database.Adapter() != driver.AdapterPostgres {
		return nil
	}

	refresh := operation.Operation{
		Kind:  operation.RawExecute,
		Table: op.Table,
		Args:  []interface{}{fmt.Sprintf("ANALYZE %q", op.Table)},
	}

	if err := a.executor.Apply(refresh); err != nil {
		return fmt.Errorf("failed to refresh statistics for \"%s\": %w", op.Table, err)
	}

	return nil
}

func (a *anzenImpl) context() (Context, error) {
	if a.ctxReady {
		return a.ctx, nil
	}

	code, err := a.database.ServerVersionCode()
	if err != nil {
		return Context{}, fmt.Errorf("failed to inspect database capabilities: %w", err)
	}

	a.ctx = Context{
		Adapter:     a.database.Adapter(),
		VersionCode: code,
	}
	a.ctxReady = true

	return a.ctx, nil
}
