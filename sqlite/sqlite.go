// Package sqlite is the source for tables and queries of local SQLite
// databases.
//
// The symbol is a table name or a SELECT statement, the "db" filter is the
// database file. Statements may use the :start and :end parameters, bound to
// the query range.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	_ "github.com/mattn/go-sqlite3"
)

// Name of the source.
const Name = "sqlite"

// Source runs read-only queries on database files.
type Source struct{}

// New returns a sqlite source.
func New() *Source { return &Source{} }

func (*Source) Name() string { return Name }

func (*Source) Description() string {
	return "SQLite table or SELECT statement, the database file given with -filter db=path"
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Statement returns the SQL statement for symbol: a table name is selected
// entirely, statements must be read only queries.
func Statement(symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if identifier.MatchString(symbol) {
		return fmt.Sprintf("SELECT * FROM %q", symbol), nil
	}
	head := strings.ToUpper(strings.Fields(symbol + " ")[0])
	if head != "SELECT" && head != "WITH" {
		return "", fmt.Errorf("%w: want a table name or a SELECT statement, got %q", dataterm.ErrInvalidParameters, symbol)
	}
	return symbol, nil
}

// Fetch implements dataterm.Source.
func (*Source) Fetch(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
	path := q.Filter("db", "")
	if path == "" {
		return nil, fmt.Errorf("%w: no database, use -filter db=path", dataterm.ErrInvalidParameters)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no database %q", dataterm.ErrInvalidParameters, path)
	}
	stmt, err := Statement(q.Symbol)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dataterm.ErrSourceUnavailable, err)
	}
	defer db.Close()

	var args []any
	if strings.Contains(stmt, ":start") {
		args = append(args, sql.Named("start", q.Range.From.String()))
	}
	if strings.Contains(stmt, ":end") {
		args = append(args, sql.Named("end", q.Range.To.String()))
	}
	return Query(ctx, db, stmt, args...)
}

// Query runs stmt on db and returns the result as a table. Column kinds come
// from the declared types, or from the values for expressions.
func Query(ctx context.Context, db *sql.DB, stmt string, args ...any) (*dataterm.Table, error) {
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", dataterm.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", dataterm.ErrInvalidParameters, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dataterm.ErrSourceUnavailable, err)
	}
	var records [][]any
	for rows.Next() {
		record := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range record {
			ptrs[i] = &record[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %v", dataterm.ErrSourceUnavailable, err)
		}
		for i, v := range record {
			if b, ok := v.([]byte); ok {
				record[i] = string(b)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", dataterm.ErrSourceUnavailable, err)
	}

	columns := make([]dataterm.Column, len(types))
	for j, ct := range types {
		columns[j] = column(ct.Name(), ct.DatabaseTypeName(), records, j)
	}
	t, err := dataterm.NewTable(columns...)
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		for j, v := range record {
			if _, ok := v.(string); !ok && v != nil && columns[j].Kind == dataterm.KindCategory {
				record[j] = fmt.Sprint(v)
			}
		}
		if err := t.Append(record...); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", dataterm.ErrSourceUnavailable, i+1, err)
		}
	}
	return t, nil
}

// column returns the descriptor of column j.
func column(name, declared string, records [][]any, j int) dataterm.Column {
	switch declared = strings.ToUpper(declared); {
	case declared == "DATE", strings.HasPrefix(declared, "DATETIME"), strings.HasPrefix(declared, "TIMESTAMP"):
		return dataterm.Date(name)
	case strings.Contains(declared, "INT"):
		return dataterm.Integer(name)
	case strings.Contains(declared, "REAL"), strings.Contains(declared, "FLOA"), strings.Contains(declared, "DOUB"),
		strings.Contains(declared, "NUMERIC"), strings.Contains(declared, "DECIMAL"):
		return dataterm.Float(name)
	case strings.Contains(declared, "CHAR"), strings.Contains(declared, "CLOB"), strings.Contains(declared, "TEXT"):
		if allDates(records, j) {
			return dataterm.Date(name)
		}
		return dataterm.Category(name)
	}

	// no declared type: look at the values
	integer, float := true, true
	seen := false
	for _, record := range records {
		switch record[j].(type) {
		case nil:
			continue
		case int64:
		case float64:
			integer = false
		case time.Time:
			return dataterm.Date(name)
		default:
			integer, float = false, false
		}
		seen = true
	}
	switch {
	case seen && integer:
		return dataterm.Integer(name)
	case seen && float:
		return dataterm.Float(name)
	case seen && allDates(records, j):
		return dataterm.Date(name)
	}
	return dataterm.Category(name)
}

// allDates reports whether the non null values of column j are dates.
func allDates(records [][]any, j int) bool {
	seen := false
	for _, record := range records {
		switch v := record[j].(type) {
		case nil:
		case string:
			if _, err := time.Parse(date.DateFormat, v); err != nil {
				return false
			}
			seen = true
		default:
			return false
		}
	}
	return seen
}
