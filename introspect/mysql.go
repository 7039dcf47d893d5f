package introspect

import (
	"context"
	"database/sql"
)

// mysqlIntrospector implements introspection for MySQL.
type mysqlIntrospector struct {
	db *sql.DB
}

const (
	mysqlTablesQuery = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		ORDER BY table_name
	`
	mysqlInternalTablesQuery = `
		SELECT table_name
		FROM information_schema.tables
		ORDER BY table_name
	`
)

// TableNames implements Introspector.
func (i *mysqlIntrospector) TableNames(ctx context.Context, internal bool) ([]string, error) {
	query := mysqlTablesQuery
	if internal {
		query = mysqlInternalTablesQuery
	}
	return collectNames(ctx, i.db, query)
}
