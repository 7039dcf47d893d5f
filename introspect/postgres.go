package introspect

import (
	"context"
	"database/sql"
)

// postgresIntrospector implements introspection for PostgreSQL.
type postgresIntrospector struct {
	db *sql.DB
}

const (
	pgTablesQuery = `
		SELECT tablename
		FROM pg_catalog.pg_tables
		WHERE schemaname != 'pg_catalog'
		  AND schemaname != 'information_schema'
		ORDER BY tablename
	`
	pgInternalTablesQuery = `
		SELECT tablename
		FROM pg_catalog.pg_tables
		ORDER BY tablename
	`
)

// TableNames implements Introspector.
func (i *postgresIntrospector) TableNames(ctx context.Context, internal bool) ([]string, error) {
	query := pgTablesQuery
	if internal {
		query = pgInternalTablesQuery
	}
	return collectNames(ctx, i.db, query)
}
