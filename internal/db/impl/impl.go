// Package impl implements the storage interfaces on SQLite.
package impl

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
)

type dbImpl struct {
	Config config.Configuration
	db     *sql.DB
}

func New(config config.Configuration, d *sql.DB) db.DB {
	return &dbImpl{
		Config: config,
		db:     d,
	}
}

// HandleError takes a database error and returns a higher level error that hides the implementation details
// and can be more easily handled by the calling functions without doing type assertions, checking error codes and
// comparing to sentinel errors.
func (d *dbImpl) HandleError(err error) error {
	var sqliteErr sqlite3.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return db.ErrNotFound
	case errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey):
		return db.ErrDuplicate
	default:
		log.Error().Err(err).Send()
		return err
	}
}
