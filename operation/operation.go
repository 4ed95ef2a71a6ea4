// Package operation defines the typed schema-change operations that the
// safety engine evaluates. The calling DSL layer translates its calls into
// Operation values before handing them to the engine.
package operation

import "fmt"

type Kind uint

const (
	Unknown Kind = iota
	DropColumn
	DropColumns
	DropTimestamps
	DropReference
	ChangeTable
	RenameTable
	RenameColumn
	AddIndex
	AddColumn
	ChangeColumnType
	CreateTable
	AddReference
	RawExecute
	ChangeColumnNull
)

// AddBelongsTo is the DSL alias for AddReference.
const AddBelongsTo = AddReference

func (k Kind) String() string {
	switch k {
	case DropColumn:
		return "drop_column"
	case DropColumns:
		return "drop_columns"
	case DropTimestamps:
		return "drop_timestamps"
	case DropReference:
		return "drop_reference"
	case ChangeTable:
		return "change_table"
	case RenameTable:
		return "rename_table"
	case RenameColumn:
		return "rename_column"
	case AddIndex:
		return "add_index"
	case AddColumn:
		return "add_column"
	case ChangeColumnType:
		return "change_column"
	case CreateTable:
		return "create_table"
	case AddReference:
		return "add_reference"
	case RawExecute:
		return "execute"
	case ChangeColumnNull:
		return "change_column_null"
	default:
		return "unknown"
	}
}

// ---

// Options carries the keyword options of a schema-change call.
type Options map[string]interface{}

// Expr is a raw SQL expression used as a column default. Defaults of this
// type are not literals and do not trigger the full-table-rewrite rule.
type Expr string

// ---

// Operation is a single schema-change call, immutable once constructed.
// Args holds the positional arguments after the table name, in call order.
type Operation struct {
	Kind    Kind
	Table   string
	Args    []interface{}
	Options Options
}

// Column returns the first positional argument as a column name.
func (op Operation) Column() string {
	return op.stringArg(0)
}

// ColumnType returns the second positional argument as a column type
// (add_column and change_column place the type there).
func (op Operation) ColumnType() string {
	return op.stringArg(1)
}

// Columns returns all positional string arguments. For add_index a single
// []string argument is also accepted in place of variadic column names.
func (op Operation) Columns() []string {
	columns := make([]string, 0, len(op.Args))

	for _, arg := range op.Args {
		switch v := arg.(type) {
		case string:
			columns = append(columns, v)
		case []string:
			columns = append(columns, v...)
		}
	}

	return columns
}

// Default returns the configured default value and whether one was supplied.
func (op Operation) Default() (interface{}, bool) {
	value, ok := op.Options["default"]
	return value, ok
}

// HasLiteralDefault reports whether the operation supplies a literal,
// non-null default value. Raw SQL expressions (Expr) are not literals.
func (op Operation) HasLiteralDefault() bool {
	value, ok := op.Default()
	if !ok || value == nil {
		return false
	}

	_, isExpr := value.(Expr)

	return !isExpr
}

// BoolOption returns the named option as a bool, or fallback when the
// option is absent or not a bool.
func (op Operation) BoolOption(name string, fallback bool) bool {
	value, ok := op.Options[name]
	if !ok {
		return fallback
	}

	b, ok := value.(bool)
	if !ok {
		return fallback
	}

	return b
}

// StringOption returns the named option rendered as a string, or "" when
// the option is absent.
func (op Operation) StringOption(name string) string {
	value, ok := op.Options[name]
	if !ok || value == nil {
		return ""
	}

	return fmt.Sprintf("%v", value)
}

func (op Operation) stringArg(i int) string {
	if i >= len(op.Args) {
		return ""
	}

	s, ok := op.Args[i].(string)
	if !ok {
		return ""
	}

	return s
}
