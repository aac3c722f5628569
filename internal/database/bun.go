package database

import (
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// NewBunDB wraps an open Postgres connection with bun's query builder.
// Unknown result columns are discarded instead of failing the scan.
func NewBunDB(sqlDB *sql.DB) *bun.DB {
	return bun.NewDB(sqlDB, pgdialect.New(), bun.WithDiscardUnknownColumns())
}
