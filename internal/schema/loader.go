package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ColumnRef names a single column of a table.
type ColumnRef struct {
	Table  string
	Column string
}

// Loader introspects the live database schema.
type Loader struct {
	db *sql.DB
}

func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// LoadCatalog builds the allow-list from information_schema for the public
// schema. Tables and columns come back in declaration order.
func (l *Loader) LoadCatalog(ctx context.Context) (*Catalog, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []Table
	byName := map[string]int{}
	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		index, ok := byName[tableName]
		if !ok {
			index = len(tables)
			byName[tableName] = index
			tables = append(tables, Table{Name: tableName})
		}
		tables[index].Columns = append(tables[index].Columns, columnName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables found in public schema")
	}
	return NewCatalog(tables...), nil
}

// TextColumns lists the text-typed columns of the public schema, the
// candidate sources for the vector index.
func (l *Loader) TextColumns(ctx context.Context) ([]ColumnRef, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = 'public'
  AND data_type IN ('character varying', 'text', 'varchar', 'char')
ORDER BY table_name, column_name`)
	if err != nil {
		return nil, fmt.Errorf("introspect text columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	refs := make([]ColumnRef, 0)
	for rows.Next() {
		var ref ColumnRef
		if err := rows.Scan(&ref.Table, &ref.Column); err != nil {
			return nil, fmt.Errorf("scan text column row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate text column rows: %w", err)
	}
	return refs, nil
}

// DistinctValues fetches the distinct non-null values of one text column.
func (l *Loader) DistinctValues(ctx context.Context, ref ColumnRef) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL`,
		QuoteIdent(ref.Column), QuoteIdent(ref.Table), QuoteIdent(ref.Column))

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch distinct values for %s.%s: %w", ref.Table, ref.Column, err)
	}
	defer func() { _ = rows.Close() }()

	values := make([]string, 0)
	for rows.Next() {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		if value.Valid {
			values = append(values, value.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}
	return values, nil
}

// SampleRows fetches up to limit rows of a table for translator context.
func (l *Loader) SampleRows(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT * FROM %s LIMIT %d`, QuoteIdent(table), limit)

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("sample rows for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("sample columns for %s: %w", table, err)
	}

	sampled := make([][]any, 0, limit)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, fmt.Errorf("scan sample row: %w", err)
		}
		for i, value := range values {
			if raw, ok := value.([]byte); ok {
				values[i] = string(raw)
			}
		}
		sampled = append(sampled, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sample rows: %w", err)
	}
	return columns, sampled, nil
}

func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
