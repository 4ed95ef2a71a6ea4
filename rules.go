package anzen

import (
	"errors"
	"fmt"

	"github.com/root-talis/anzen/driver"
	"github.com/root-talis/anzen/migration"
	"github.com/root-talis/anzen/operation"
)

// Context is the capability snapshot of the target database, fetched once
// per run and cached.
type Context struct {
	Adapter     driver.Adapter
	VersionCode int64
}

// Postgres version codes the rules gate on.
const (
	postgresFastDefaults = 110000 // defaults become metadata-only
	postgresJsonb        = 90400
)

// ---

type rule struct {
	key      string
	kinds    []operation.Kind
	header   string
	template string
	check    func(op operation.Operation, state *RunState, ctx Context) (bool, map[string]string)
}

func (r rule) applies(kind operation.Kind) bool {
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}

	return false
}

func (r rule) diagnostic(vars map[string]string, cfg Config) Diagnostic {
	template := r.template
	if override, ok := cfg.Messages[r.key]; ok {
		template = override
	}

	return Diagnostic{
		Header: r.header,
		Body:   render(template, vars) + "\n\n" + overrideHint,
	}
}

const (
	headerDangerous    = "Dangerous operation detected"
	headerBestPractice = "Unoptimized operation detected"
	headerPolicy       = "Custom safety check failed"
)

// catalog is the fixed built-in rule table. Order is priority order: for a
// given kind the first matching rule wins, so the hard non-concurrent
// add_index rule sits above the column-count best-practice rule.
var catalog = []rule{ // nolint:gochecknoglobals
	{
		key:      "drop_column",
		kinds:    []operation.Kind{operation.DropColumn, operation.DropColumns, operation.DropTimestamps, operation.DropReference},
		header:   headerDangerous,
		template: dropColumnTemplate,
		check:    checkDropColumn,
	},
	{
		key:      "add_index",
		kinds:    []operation.Kind{operation.AddIndex},
		header:   headerDangerous,
		template: addIndexTemplate,
		check:    checkAddIndexConcurrently,
	},
	{
		key:      "add_index_columns",
		kinds:    []operation.Kind{operation.AddIndex},
		header:   headerBestPractice,
		template: addIndexColumnsTemplate,
		check:    checkAddIndexColumns,
	},
	{
		key:      "add_column_default",
		kinds:    []operation.Kind{operation.AddColumn},
		header:   headerDangerous,
		template: addColumnDefaultTemplate,
		check:    checkAddColumnDefault,
	},
	{
		key:      "add_column_json",
		kinds:    []operation.Kind{operation.AddColumn},
		header:   headerDangerous,
		template: addColumnJSONTemplate,
		check:    checkAddColumnJSON,
	},
	{
		key:      "change_column",
		kinds:    []operation.Kind{operation.ChangeColumnType},
		header:   headerDangerous,
		template: changeColumnTemplate,
		check:    checkChangeColumnType,
	},
	{
		key:      "create_table",
		kinds:    []operation.Kind{operation.CreateTable},
		header:   headerDangerous,
		template: createTableTemplate,
		check:    checkCreateTable,
	},
	{
		key:      "add_reference",
		kinds:    []operation.Kind{operation.AddReference},
		header:   headerDangerous,
		template: addReferenceTemplate,
		check:    checkAddReference,
	},
	{
		key:      "change_column_null",
		kinds:    []operation.Kind{operation.ChangeColumnNull},
		header:   headerDangerous,
		template: changeColumnNullTemplate,
		check:    checkChangeColumnNull,
	},
	{
		key:      "possibly_dangerous",
		kinds:    []operation.Kind{operation.ChangeTable, operation.RenameTable, operation.RenameColumn, operation.RawExecute},
		header:   headerDangerous,
		template: possiblyDangerousTemplate,
		check:    checkAlways,
	},
}

func knownRuleKey(key string) bool {
	for _, r := range catalog {
		if r.key == key {
			return true
		}
	}

	return false
}

func validateCatalog() error {
	for _, r := range catalog {
		if r.key == "" || r.header == "" || r.template == "" || len(r.kinds) == 0 || r.check == nil {
			return fmt.Errorf("%w: incomplete rule \"%s\"", ErrConfiguration, r.key)
		}
	}

	return nil
}

// ---

// Evaluate is the rule engine itself: global exemptions, then built-in
// rules in catalog order, then custom checks in registration order. It is
// a pure function of its inputs.
func Evaluate(op operation.Operation, state *RunState, ctx Context, cfg Config) Decision {
	if exempt(state, cfg) {
		return Decision{}
	}

	for _, r := range catalog {
		if !r.applies(op.Kind) {
			continue
		}

		if matched, vars := r.check(op, state, ctx); matched {
			diagnostic := r.diagnostic(vars, cfg)
			return Decision{Block: true, Diagnostic: &diagnostic}
		}
	}

	return evaluateChecks(op, cfg)
}

func exempt(state *RunState, cfg Config) bool {
	return state.OverrideActive() ||
		cfg.SafetyAssured ||
		state.Direction == migration.Down ||
		cfg.grandfathered(state.Version)
}

func evaluateChecks(op operation.Operation, cfg Config) Decision {
	for _, check := range cfg.Checks {
		err := check(op)
		if err == nil {
			continue
		}

		var unsafeErr *UnsafeOperationError
		if errors.As(err, &unsafeErr) {
			diagnostic := unsafeErr.Diagnostic
			return Decision{Block: true, Diagnostic: &diagnostic}
		}

		return Decision{
			Block:  true,
			Policy: true,
			Diagnostic: &Diagnostic{
				Header: headerPolicy,
				Body:   err.Error(),
			},
			err: err,
		}
	}

	return Decision{}
}

// ---

func checkDropColumn(op operation.Operation, _ *RunState, _ Context) (bool, map[string]string) {
	var columns []string

	switch op.Kind {
	case operation.DropColumns:
		columns = op.Columns()
	case operation.DropTimestamps:
		columns = []string{"created_at", "updated_at"}
	case operation.DropReference:
		columns = []string{op.Column() + "_id"}
	default:
		columns = []string{op.Column()}
	}

	plural, pronoun := "", "it"
	if len(columns) > 1 {
		plural, pronoun = "s", "them"
	}

	return true, map[string]string{
		"table":   op.Table,
		"columns": quotedList(columns),
		"plural":  plural,
		"pronoun": pronoun,
	}
}

func checkAddIndexConcurrently(op operation.Operation, state *RunState, ctx Context) (bool, map[string]string) {
	if ctx.Adapter != driver.AdapterPostgres {
		return false, nil
	}
	if op.StringOption("algorithm") == "concurrently" {
		return false, nil
	}
	if state.IsNewTable(op.Table) {
		// indexing a table created in this same run locks nothing anyone
		// can see yet
		return false, nil
	}

	return true, map[string]string{
		"table":   op.Table,
		"columns": stringSliceLiteral(op.Columns()),
	}
}

const maxIndexColumns = 3

func checkAddIndexColumns(op operation.Operation, _ *RunState, _ Context) (bool, map[string]string) {
	if len(op.Columns()) <= maxIndexColumns || op.BoolOption("unique", false) {
		return false, nil
	}

	return true, map[string]string{
		"table": op.Table,
	}
}

func checkAddColumnDefault(op operation.Operation, _ *RunState, ctx Context) (bool, map[string]string) {
	if !op.HasLiteralDefault() {
		return false, nil
	}
	if ctx.Adapter == driver.AdapterPostgres && ctx.VersionCode >= postgresFastDefaults {
		// fast defaults: the value is stored as metadata, no table rewrite
		return false, nil
	}

	defaultValue, _ := op.Default()

	return true, map[string]string{
		"table":    op.Table,
		"column":   op.Column(),
		"type":     op.ColumnType(),
		"default":  renderValue(defaultValue),
		"backfill": backfillSnippet(op.Table, op.Column(), defaultValue),
	}
}

func checkAddColumnJSON(op operation.Operation, _ *RunState, ctx Context) (bool, map[string]string) {
	if ctx.Adapter != driver.AdapterPostgres || op.ColumnType() != "json" {
		return false, nil
	}

	suggestion := "Verify manually that no query compares or deduplicates rows on this\ncolumn."
	if ctx.VersionCode >= postgresJsonb {
		suggestion = fmt.Sprintf(
			"Use jsonb instead:\n\n    AddColumn(%q, %q, \"jsonb\")",
			op.Table, op.Column(),
		)
	}

	return true, map[string]string{
		"table":      op.Table,
		"suggestion": suggestion,
	}
}

func checkChangeColumnType(op operation.Operation, _ *RunState, ctx Context) (bool, map[string]string) {
	// the one statically known safe narrowing: text to a length-bounded
	// string on Postgres
	if ctx.Adapter == driver.AdapterPostgres && op.ColumnType() == "string" {
		return false, nil
	}

	return true, map[string]string{
		"table": op.Table,
	}
}

func checkCreateTable(op operation.Operation, _ *RunState, _ Context) (bool, map[string]string) {
	forced, ok := op.Options["force"]
	if !ok || forced == nil || forced == false {
		return false, nil
	}

	return true, map[string]string{
		"table": op.Table,
	}
}

func checkAddReference(op operation.Operation, _ *RunState, ctx Context) (bool, map[string]string) {
	if ctx.Adapter != driver.AdapterPostgres || !op.BoolOption("index", true) {
		return false, nil
	}

	reference := op.Column()

	return true, map[string]string{
		"table":     op.Table,
		"reference": reference,
		"column":    reference + "_id",
	}
}

func checkChangeColumnNull(op operation.Operation, _ *RunState, _ Context) (bool, map[string]string) {
	const defaultArg = 2

	if len(op.Args) <= defaultArg || op.Args[defaultArg] == nil {
		return false, nil
	}
	if allow, ok := op.Args[1].(bool); !ok || allow {
		return false, nil
	}

	defaultValue := op.Args[defaultArg]

	return true, map[string]string{
		"table":    op.Table,
		"column":   op.Column(),
		"backfill": backfillSnippet(op.Table, op.Column(), defaultValue),
	}
}

func checkAlways(op operation.Operation, _ *RunState, _ Context) (bool, map[string]string) {
	return true, map[string]string{
		"operation": op.Kind.String(),
	}
}
