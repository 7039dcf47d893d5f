// Package introspect reads table-name metadata from a connected database.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
)

// Introspector lists the tables of a connected database.
type Introspector interface {
	// TableNames returns the table names visible on the connection. When
	// internal is set, system catalog tables are included as well.
	TableNames(ctx context.Context, internal bool) ([]string, error)
}

// New returns the introspector for a driver name.
func New(driverName string, db *sql.DB) (Introspector, error) {
	switch driverName {
	case "sqlite3":
		return &sqliteIntrospector{db: db}, nil
	case "postgres":
		return &postgresIntrospector{db: db}, nil
	case "mysql":
		return &mysqlIntrospector{db: db}, nil
	default:
		return nil, fmt.Errorf("introspect: unsupported driver %q", driverName)
	}
}

// collectNames runs a single-column query and gathers the results.
func collectNames(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return names, nil
}
