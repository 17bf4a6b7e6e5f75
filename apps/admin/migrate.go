package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/storage/database"
)

var errNoDatabase = errors.New("migrate needs a Postgres database")

type migrator func(ctx context.Context, command string, args ...string) error

// dbMigrator runs the embedded migrations on db; a nil db is the memory engine.
func dbMigrator(db *sqlx.DB) migrator {
	return func(ctx context.Context, command string, args ...string) error {
		if db == nil {
			return errNoDatabase
		}
		return database.Migrate(ctx, db, command, args...)
	}
}

func (cli *commandLine) migrate(args []string) error {
	return cli.migrator(context.Background(), args[0], args[1:]...)
}
