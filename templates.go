package anzen

// Message templates for the built-in rules. %{name} tokens are substituted
// with the variables built by the rule's predicate; see render.

const dropColumnTemplate = `Dropping a column takes effect immediately and breaks any deployed code
that still reads or writes it. The data is gone for good once dropped.

Deploy in two phases instead:

1. Declare the column%{plural} ignored in the application layer, release:

    schema.Bind("%{table}").IgnoreColumns(%{columns})

2. Drop the column%{plural} in a later migration, after no running release
   references %{pronoun} anymore.`

const possiblyDangerousTemplate = `The %{operation} operation is possibly dangerous to run against a live
database. Verify manually that it neither locks the table for long nor
loses data before proceeding.`

const addIndexTemplate = `Adding an index non-concurrently locks "%{table}" against writes for the
whole build. Build it concurrently instead (this must run outside a
transaction):

    AddIndex("%{table}", %{columns}, operation.Options{"algorithm": "concurrently"})`

const addIndexColumnsTemplate = `Adding a non-unique index with more than three columns rarely improves
read performance and slows down every write to "%{table}". Index fewer
columns, or make the index unique.`

const addColumnDefaultTemplate = `Adding a column with a literal default forces this server to rewrite all
of "%{table}" under an exclusive lock. Add the column without the default,
backfill existing rows in batches, then set the default separately:

    AddColumn("%{table}", "%{column}", "%{type}")

%{backfill}
    ChangeColumnDefault("%{table}", "%{column}", %{default})`

const addColumnJSONTemplate = `The json type has no equality operator, which breaks SELECT DISTINCT and
row comparisons on "%{table}". %{suggestion}`

const changeColumnTemplate = `Changing a column's type rewrites "%{table}" and blocks reads and writes
while it runs. The only statically safe change is from text to a
length-bounded string on Postgres. Verify this change manually.`

const createTableTemplate = `The force option drops an existing "%{table}" table together with all of
its data before recreating it. Remove the option, and drop the old table
explicitly if that is really intended.`

const addReferenceTemplate = `Adding a reference builds its index while holding a write lock on
"%{table}". Add the reference without the index, then build the index
concurrently:

    AddReference("%{table}", "%{reference}", operation.Options{"index": false})
    AddIndex("%{table}", []string{"%{column}"}, operation.Options{"algorithm": "concurrently"})`

const changeColumnNullTemplate = `Disallowing NULL while supplying a default validates and rewrites every
existing row of "%{table}" in one statement under lock. Backfill in
batches first, then tighten the constraint without a default:

%{backfill}
    ChangeColumnNull("%{table}", "%{column}", false, nil)`
