package main

import (
	"context"
	"fmt"
	"os"

	"github.com/morris0411/ManavisGradesApp/apps/di"
	"github.com/morris0411/ManavisGradesApp/core"
)

func main() {
	conf := core.NewConfig()
	logger := di.NewLogger(conf, "ADMIN : ")

	c, err := di.NewContainer(context.Background(), conf, logger, false)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		out:      os.Stdout,
		migrator: dbMigrator(c.DB),
		validate: c.Validate,
		usrSvc:   c.UserSvc,
		examSvc:  c.ExamSvc,
		acadSvc:  c.AcademicSvc,
	}
	err = cli.run(os.Args)
	_ = c.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
