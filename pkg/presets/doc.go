/*
Package presets stores named formatting directives in a SQLite database.

A preset gives a directive string such as "l=10&t=_&a=1&f=0.00" a stable name
so templates and API clients can refer to "price" instead of repeating the
directive. Directives are validated with fieldfmt.Parse before they are
written, so every stored preset is known to parse.

The store works with any database/sql SQLite driver. Call SetupSchema once on
a new database, then NewStore to prepare the statements.
*/
package presets
