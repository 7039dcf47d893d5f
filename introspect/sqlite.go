package introspect

import (
	"context"
	"database/sql"
)

// sqliteIntrospector implements introspection for SQLite.
type sqliteIntrospector struct {
	db *sql.DB
}

const (
	sqliteTablesQuery = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	sqliteInternalTablesQuery = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		ORDER BY name
	`
)

// TableNames implements Introspector.
func (i *sqliteIntrospector) TableNames(ctx context.Context, internal bool) ([]string, error) {
	query := sqliteTablesQuery
	if internal {
		query = sqliteInternalTablesQuery
	}
	return collectNames(ctx, i.db, query)
}
