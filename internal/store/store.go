// Package store opens the selection store configured for the process.
package store

import (
	"context"
	"fmt"

	"github.com/hupe1980/where2work/internal/selection"
	"github.com/hupe1980/where2work/internal/store/memory"
	"github.com/hupe1980/where2work/internal/store/postgres"
	"github.com/hupe1980/where2work/internal/store/sqlite"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Drivers lists the supported drivers.
func Drivers() []string {
	return []string{DriverMemory, DriverSQLite, DriverPostgres}
}

// Open returns the store for driver. dsn is a file path for sqlite and a
// connection string for postgres; memory ignores it.
func Open(ctx context.Context, driver, dsn string) (selection.Store, error) {
	switch driver {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.NewStore(ctx, dsn)
	case DriverPostgres:
		return postgres.NewStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q (available: %v)", driver, Drivers())
	}
}
