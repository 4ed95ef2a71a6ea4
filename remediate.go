package anzen

import (
	"fmt"
	"strings"

	"github.com/root-talis/anzen/operation"
)

// render substitutes %{name} tokens in a message template. Literal percent
// signs in the static template text are doubled first, so a printf-style
// presenter downstream cannot misread them; interpolated variable values
// are inserted verbatim.
func render(template string, vars map[string]string) string {
	result := strings.ReplaceAll(template, "%", "%%")

	for name, value := range vars {
		result = strings.ReplaceAll(result, "%%{"+name+"}", value)
	}

	return result
}

const overrideHint = "Once you have verified the operation is safe, wrap it in a SafetyAssured\n" +
	"block to proceed."

const backfillBatchSize = 1000

// ---

// backfillSnippet generates a batched update over the entity bound to the
// table: all existing rows receive the default in bounded batches instead
// of one long-locking statement.
func backfillSnippet(table string, column string, defaultValue interface{}) string {
	return fmt.Sprintf(
		"    entity := schema.Bind(\"%s\")\n"+
			"    entity.InBatchesOf(%d, func(batch schema.Batch) error {\n"+
			"        return batch.UpdateAll(schema.Values{\"%s\": %s})\n"+
			"    })\n",
		table, backfillBatchSize, column, renderValue(defaultValue),
	)
}

// renderValue renders a default value as migration code: strings quoted,
// raw SQL expressions verbatim.
func renderValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", v)
	case operation.Expr:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// quotedList renders column names as an argument list: "a", "b".
func quotedList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = fmt.Sprintf("%q", column)
	}

	return strings.Join(quoted, ", ")
}

// stringSliceLiteral renders column names as a Go slice literal.
func stringSliceLiteral(columns []string) string {
	return "[]string{" + quotedList(columns) + "}"
}
