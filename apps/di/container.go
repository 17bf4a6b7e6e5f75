// Package di wires configuration, storage and services for the binaries.
package di

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/academic"
	"github.com/morris0411/ManavisGradesApp/core/exam"
	"github.com/morris0411/ManavisGradesApp/core/master"
	"github.com/morris0411/ManavisGradesApp/core/student"
	"github.com/morris0411/ManavisGradesApp/core/user"
	"github.com/morris0411/ManavisGradesApp/services/logger"
	"github.com/morris0411/ManavisGradesApp/services/metrics"
	"github.com/morris0411/ManavisGradesApp/storage/database"
	"github.com/morris0411/ManavisGradesApp/storage/database/inmem"
	"github.com/morris0411/ManavisGradesApp/storage/database/sqlx"
)

// EngineMemory keeps everything in process memory; nothing survives a restart.
const EngineMemory = "memory"

type (
	repositories struct {
		tx        core.Transactor
		users     user.Repository
		students  student.Repository
		exams     exam.Repository
		masters   master.Repository
		rollovers academic.Repository
	}

	Container struct {
		Conf       *core.Config
		Logger     core.Logger
		Metrics    *metricsvc.Metrics
		Validate   *validator.Validate
		Translator ut.Translator

		// DB is nil on the memory engine.
		DB *sqlx.DB

		UserSvc     *user.Service
		StudentSvc  *student.Service
		ExamSvc     *exam.Service
		AcademicSvc *academic.Service
	}
)

// NewLogger returns the console logger in debug mode and the rollbar reporter otherwise.
func NewLogger(conf *core.Config, prefix string) core.Logger {
	if conf.Debug {
		return logsvc.NewConsoleLogger(os.Stdout, true)
	}
	l := logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	l.Enable(true)
	return l
}

// NewContainer opens the configured storage and builds every service on top of it.
// With setUp, the Postgres role and database are created if needed and migrated up.
func NewContainer(ctx context.Context, conf *core.Config, logger core.Logger, setUp bool) (*Container, error) {
	c := &Container{
		Conf:       conf,
		Logger:     logger,
		Metrics:    metricsvc.New("manavis"),
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
	}
	core.InitValidators(c.Validate, c.Translator)

	var repos repositories
	if conf.Database.Engine == EngineMemory {
		db := inmemdb.Open()
		repos = repositories{
			tx:        db,
			users:     inmemdb.NewUserRepository(db),
			students:  inmemdb.NewStudentRepository(db),
			exams:     inmemdb.NewExamRepository(db),
			masters:   inmemdb.NewMasterRepository(db),
			rollovers: inmemdb.NewRolloverRepository(db),
		}
	} else {
		db, err := openDB(ctx, conf, setUp)
		if err != nil {
			return nil, err
		}
		c.DB = db
		repos = repositories{
			tx:        database.NewTransactor(db),
			users:     sqlxrepos.NewUserRepository(db),
			students:  sqlxrepos.NewStudentRepository(db),
			exams:     sqlxrepos.NewExamRepository(db),
			masters:   sqlxrepos.NewMasterRepository(db),
			rollovers: sqlxrepos.NewRolloverRepository(db),
		}
	}

	c.UserSvc = user.NewService(repos.users)
	c.StudentSvc = student.NewService(repos.tx, repos.students, logger,
		student.Options{ResignGraduatedOnAbsence: conf.ResignGraduatedOnAbsence})
	c.ExamSvc = exam.NewService(repos.tx, repos.exams, repos.masters, repos.students, logger,
		exam.Options{CampusCode: conf.CampusCode})
	c.AcademicSvc = academic.NewService(repos.tx, repos.rollovers, repos.students, logger, conf.Location())
	return c, nil
}

func openDB(ctx context.Context, conf *core.Config, setUp bool) (*sqlx.DB, error) {
	if setUp {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if setUp {
		if err = database.Migrate(ctx, db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
