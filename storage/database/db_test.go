package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morris0411/ManavisGradesApp/core"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestDSN(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine: "postgres", Host: "db", Port: "5432", Name: "grades",
		User: "app", Password: "p@ss", AdminUser: "root", AdminPassword: "toor",
	}}

	assert.Equal(t, "postgres://app:p%40ss@db:5432/grades?sslmode=require&timezone=utc", dsn("grades", false, conf))
	assert.Equal(t, "postgres://root:toor@db:5432/postgres?sslmode=require&timezone=utc", dsn("postgres", true, conf))

	conf.Database.DisableTLS = true
	conf.Database.AdminUser = ""
	assert.Equal(t, "postgres://app:p%40ss@db:5432/postgres?sslmode=disable&timezone=utc", dsn("postgres", true, conf))
}

func TestCreateDB(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{Name: "grades", User: "app", Password: "it's"}}

	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM pg_roles").WithArgs("app").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`CREATE USER "app" CREATEDB ENCRYPTED PASSWORD 'it''s'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("FROM pg_database").WithArgs("grades").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`CREATE DATABASE "grades"`).WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, createAppUser(db, conf))
		require.NoError(t, createDB(db, conf))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM pg_roles").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("FROM pg_database").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		require.NoError(t, createAppUser(db, conf))
		require.NoError(t, createDB(db, conf))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrate(t *testing.T) {
	db, _ := newMock(t)

	prev := gooseRun
	t.Cleanup(func() { gooseRun = prev })

	var gotCmd, gotDir string
	var gotArgs []string
	gooseRun = func(_ context.Context, command string, _ *sql.DB, dir string, args ...string) error {
		gotCmd, gotDir, gotArgs = command, dir, args
		return nil
	}

	require.NoError(t, Migrate(context.Background(), db, "up-to", "3"))
	assert.Equal(t, "up-to", gotCmd)
	assert.Equal(t, migrationsDir, gotDir)
	assert.Equal(t, []string{"3"}, gotArgs)

	entries, err := migrations.ReadDir(migrationsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 6)

	gooseRun = func(context.Context, string, *sql.DB, string, ...string) error { return errors.New("boom") }
	err = Migrate(context.Background(), db, "down")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrating database (down)")
}

func TestTransactor_InTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE students").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := NewTransactor(db).InTx(ctx, func(exec core.DBExecutor) error {
			_, err := exec.ExecContext(ctx, "UPDATE students SET grade = grade")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := NewTransactor(db).InTx(ctx, func(core.DBExecutor) error {
			return core.NewRejectionError("nope")
		})
		assert.True(t, core.IsRejection(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
