package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/glimmerapp/glimmer/api"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

// Connect connects to the database and pings the DB to ensure the
// connection is working.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun: db,
	}, nil
}

// SQLSTATE classes used to map driver errors onto storage sentinels.
const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
)

func sqlstate(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

// mapConstraintErr translates unique and foreign key violations into
// the API sentinels: a duplicate relation means the requested state
// already holds, a dangling reference means the target is gone.
func mapConstraintErr(err error) error {
	switch sqlstate(err) {
	case sqlstateUniqueViolation:
		return api.ErrAlreadyExists
	case sqlstateForeignKeyViolation:
		return api.ErrNotFound
	}
	return err
}

var _ api.DB = (*Postgres)(nil)
