package inspect

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ForeignKey is one single-column foreign key as reported by pg_constraint.
type ForeignKey struct {
	Name       string
	Table      string
	Column     string
	RefTable   string
	Definition string
}

// Cascades reports whether deleting the referenced row removes this one.
func (fk ForeignKey) Cascades() bool {
	return strings.Contains(strings.ToUpper(fk.Definition), "ON DELETE CASCADE")
}

// Expected are the cascading references the API relies on when a user or a
// bootcamp is removed.
var Expected = []ForeignKey{
	{Table: "session_tokens", Column: "user_id", RefTable: "users"},
	{Table: "bootcamps", Column: "user_id", RefTable: "users"},
	{Table: "courses", Column: "user_id", RefTable: "users"},
	{Table: "courses", Column: "bootcamp_id", RefTable: "bootcamps"},
	{Table: "reviews", Column: "user_id", RefTable: "users"},
	{Table: "reviews", Column: "bootcamp_id", RefTable: "bootcamps"},
}

// Missing lists the expected references that are absent or do not cascade.
func Missing(found []ForeignKey) []ForeignKey {
	have := map[string]ForeignKey{}
	for _, fk := range found {
		have[fk.Table+"."+fk.Column+">"+fk.RefTable] = fk
	}
	var out []ForeignKey
	for _, want := range Expected {
		fk, ok := have[want.Table+"."+want.Column+">"+want.RefTable]
		if !ok || !fk.Cascades() {
			out = append(out, want)
		}
	}
	return out
}

// RunInspectFKs connects to Postgres using dsn, prints foreign key constraints
// and returns the expected references that are missing.
func RunInspectFKs(w io.Writer, dsn string) ([]ForeignKey, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT
		  con.conname AS constraint_name,
		  rel.relname AS table_name,
		  att.attname AS src_column,
		  confrel.relname AS referenced_table,
		  pg_get_constraintdef(con.oid) AS definition
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_class confrel ON confrel.oid = con.confrelid
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = con.conkey[1]
		WHERE con.contype = 'f' AND array_length(con.conkey, 1) = 1
		ORDER BY rel.relname, constraint_name;
	`)
	if err != nil {
		return nil, fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	var found []ForeignKey
	fmt.Fprintln(w, "Foreign keys:")
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Table, &fk.Column, &fk.RefTable, &fk.Definition); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		fmt.Fprintf(w, "- %s: %s(%s) -> %s\n    def: %s\n", fk.Name, fk.Table, fk.Column, fk.RefTable, fk.Definition)
		found = append(found, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return Missing(found), nil
}
