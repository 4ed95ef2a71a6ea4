package anzen_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/root-talis/anzen"
	"github.com/root-talis/anzen/driver"
	"github.com/root-talis/anzen/migration"
	"github.com/root-talis/anzen/operation"
)

// -- testing double for driver.Database ----------

type databaseMock struct {
	adapter     driver.Adapter
	versionCode int64
	err         error

	versionCalls int
}

func (m *databaseMock) Adapter() driver.Adapter {
	return m.adapter
}

func (m *databaseMock) ServerVersionCode() (int64, error) {
	m.versionCalls++
	return m.versionCode, m.err
}

// -- testing double for driver.Executor ----------

type executorMock struct {
	applied []operation.Operation
	err     error
}

func (m *executorMock) Apply(op operation.Operation) error {
	if m.err != nil {
		return m.err
	}

	m.applied = append(m.applied, op)
	return nil
}

// ---

var testRun = migration.Migration{Version: 20220118115519, Name: "add_plan_to_users"} // nolint:gochecknoglobals

func newForTest(t *testing.T, database *databaseMock, executor *executorMock, cfg anzen.Config) anzen.Anzen {
	t.Helper()

	engine, err := anzen.New(database, executor, testRun, migration.Up, cfg)
	if err != nil {
		t.Fatalf("failed to construct engine: %s", err)
	}

	return engine
}

//
// -- Tests for New() ------------
//

func TestNewRejectsUnknownMessageOverrides(t *testing.T) {
	t.Parallel()

	_, err := anzen.New(
		&databaseMock{adapter: driver.AdapterPostgres, versionCode: 110000},
		&executorMock{},
		testRun,
		migration.Up,
		anzen.Config{Messages: map[string]string{"no_such_rule": "text"}},
	)

	assert.ErrorIs(t, err, anzen.ErrConfiguration)
}

func TestNewRejectsEmptyMessageOverrides(t *testing.T) {
	t.Parallel()

	_, err := anzen.New(
		&databaseMock{adapter: driver.AdapterPostgres, versionCode: 110000},
		&executorMock{},
		testRun,
		migration.Up,
		anzen.Config{Messages: map[string]string{"drop_column": ""}},
	)

	assert.ErrorIs(t, err, anzen.ErrConfiguration)
}

//
// -- Tests for Apply() ------------
//

func TestApplyForwardsPermittedOperationsToTheExecutor(t *testing.T) {
	t.Parallel()

	executor := &executorMock{}
	engine := newForTest(t, &databaseMock{adapter: driver.AdapterOther, versionCode: 80032}, executor, anzen.Config{})

	op := operation.Operation{Kind: operation.CreateTable, Table: "audit_log"}
	err := engine.Apply(op)

	assert.NoError(t, err)
	if assert.Len(t, executor.applied, 1) {
		assert.Equal(t, op, executor.applied[0])
	}
}

func TestApplyBlocksUnsafeOperationsBeforeTheExecutor(t *testing.T) {
	t.Parallel()

	executor := &executorMock{}
	engine := newForTest(t, &databaseMock{adapter: driver.AdapterPostgres, versionCode: 110000}, executor, anzen.Config{})

	err := engine.Apply(operation.Operation{Kind: operation.DropColumn, Table: "users", Args: []interface{}{"legacy"}})

	var unsafeErr *anzen.UnsafeOperationError
	assert.ErrorAs(t, err, &unsafeErr)
	assert.Empty(t, executor.applied)
}

func TestApplyReportsPolicyViolationsWithTheirOwnErrorType(t *testing.T) {
	t.Parallel()

	errPolicy := errors.New("table names must be snake_case")
	executor := &executorMock{}
	engine := newForTest(t,
		&databaseMock{adapter: driver.AdapterPostgres, versionCode: 110000},
		executor,
		anzen.Config{Checks: []anzen.Check{
			func(op operation.Operation) error { return errPolicy },
		}},
	)

	err := engine.Apply(operation.Operation{Kind: operation.CreateTable, Table: "AuditLog"})

	var policyErr *anzen.PolicyViolationError
	if assert.ErrorAs(t, err, &policyErr) {
		assert.ErrorIs(t, err, errPolicy)
	}
	assert.Empty(t, executor.applied)
}

func TestApplyRecordsCreatedTablesSoLaterIndexBuildsAreSafe(t *testing.T) {
	t.Parallel()

	executor := &executorMock{}
	engine := newForTest(t, &databaseMock{adapter: driver.AdapterPostgres, versionCode: 110000}, executor, anzen.Config{})

	assert.NoError(t, engine.Apply(operation.Operation{Kind: operation.CreateTable, Table: "audit_log"}))
	assert.True(t, engine.State().IsNewTable("audit_log"))

	// a non-concurrent index on the fresh table must not trip the postgres rule
	err := engine.Apply(operation.Operation{Kind: operation.AddIndex, Table: "audit_log", Args: []interface{}{"actor"}})
	assert.NoError(t, err)
}

func TestApplyRefreshesStatisticsAfterAnIndexBuildOnPostgres(t *testing.T) {
	t.Parallel()

	executor := &executorMock{}
	engine := newForTest(t, &databaseMock{adapter: driver.AdapterPostgres, versionCode: 110000}, executor, anzen.Config{})

	err := engine.Apply(operation.Operation{
		Kind: operation.AddIndex, Table: "orders", Args: []interface{}{"user_id"},
		Options: operation.Options{"algorithm": "concurrently"},
	})

	assert.NoError(t, err)
	if assert.Len(t, executor.applied, 2) {
		followUp := executor.applied[1]
		assert.Equal(t, operation.RawExecute, followUp.Kind)
		assert.Contains(t, followUp.Args[0], `ANALYZE "orders"`)
	}
}

func TestApplyDoesNotRefreshStatisticsOnOtherAdapters(t *testing.T) {
	t.Parallel()

	executor := &executorMock{}
	engine := newForTest(t, &databaseMock{adapter: driver.AdapterOther, versionCode: 80032}, executor, anzen.Config{})

	err := engine.Apply(operation.Operation{Kind: operation.AddIndex, Table: "orders", Args: []interface{}{"user_id"}})

	assert.NoError(t, err)
	assert.Len(t, executor.applied, 1)
}

func TestApplyInsideSafetyAssuredProceeds(t *testing.T) {
	t.Parallel()

	executor := &executorMock{}
	engine := newForTest(t, &databaseMock{adapter: driver.AdapterPostgres, versionCode: 110000}, executor, anzen.Config{})

	err := engine.SafetyAssured(func() error {
		return engine.Apply(operation.Operation{Kind: operation.DropColumn, Table: "users", Args: []interface{}{"legacy"}})
	})

	assert.NoError(t, err)
	assert.Len(t, executor.applied, 1)

	// the override must not leak past the block
	err = engine.Apply(operation.Operation{Kind: operation.DropColumn, Table: "users", Args: []interface{}{"other"}})
	assert.Error(t, err)
}

func TestApplyWrapsExecutorFailures(t *testing.T) {
	t.Parallel()

	errExec := errors.New("connection lost")
	engine := newForTest(t, &databaseMock{adapter: driver.AdapterOther, versionCode: 80032}, &executorMock{err: errExec}, anzen.Config{})

	err := engine.Apply(operation.Operation{Kind: operation.CreateTable, Table: "audit_log"})

	assert.ErrorIs(t, err, errExec)
}

//
// -- Tests for Check() ------------
//

func TestCheckFetchesCapabilitiesOnceAndCachesThem(t *testing.T) {
	t.Parallel()

	database := &databaseMock{adapter: driver.AdapterPostgres, versionCode: 110000}
	engine := newForTest(t, database, &executorMock{}, anzen.Config{})

	op := operation.Operation{Kind: operation.AddIndex, Table: "users", Args: []interface{}{"email"}}
	_, err := engine.Check(op)
	assert.NoError(t, err)
	_, err = engine.Check(op)
	assert.NoError(t, err)

	assert.Equal(t, 1, database.versionCalls)
}

func TestCheckSkipsTheCapabilityLookupForExemptRuns(t *testing.T) {
	t.Parallel()

	database := &databaseMock{adapter: driver.AdapterPostgres, err: errors.New("unreachable")}
	engine, err := anzen.New(database, &executorMock{}, testRun, migration.Down, anzen.Config{})
	if err != nil {
		t.Fatalf("failed to construct engine: %s", err)
	}

	decision, err := engine.Check(operation.Operation{Kind: operation.DropColumn, Table: "users", Args: []interface{}{"legacy"}})

	assert.NoError(t, err)
	assert.False(t, decision.Block)
	assert.Equal(t, 0, database.versionCalls)
}

func TestCheckSurfacesCapabilityLookupFailures(t *testing.T) {
	t.Parallel()

	errVersion := errors.New("version query failed")
	database := &databaseMock{adapter: driver.AdapterPostgres, err: errVersion}
	engine := newForTest(t, database, &executorMock{}, anzen.Config{})

	_, err := engine.Check(operation.Operation{Kind: operation.AddIndex, Table: "users", Args: []interface{}{"email"}})

	assert.ErrorIs(t, err, errVersion)
}
