package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/morris0411/ManavisGradesApp/core/academic"
	"github.com/morris0411/ManavisGradesApp/core/exam"
	"github.com/morris0411/ManavisGradesApp/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out      io.Writer
	migrator migrator
	validate *validator.Validate
	usrSvc   *user.Service
	examSvc  *exam.Service
	acadSvc  *academic.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo, up-to VERSION, ...)")
	fmt.Fprintln(cli.out, "  adduser -login ID [-admin] - create a staff account or reset an existing one")
	fmt.Fprintln(cli.out, "  resetpassword -login ID - reset a staff account's password")
	fmt.Fprintln(cli.out, "  seedexams - load the vendor exam catalogue")
	fmt.Fprintln(cli.out, "  rollover [-status] - advance every student by one grade (once per academic year)")
}

// promptPassword reads a password without echo; an empty one prints the usage of fs.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserLogin := addUserCmd.String("login", "", "The login id. The password will be prompted next.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant admin rights (account registration).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordLogin := resetPasswordCmd.String("login", "", "The login id. The password will be prompted next.")

	rolloverCmd := flag.NewFlagSet("rollover", flag.ExitOnError)
	rolloverStatus := rolloverCmd.Bool("status", false, "Only print whether the rollover can run.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserLogin == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserLogin, pwd, *addUserAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordLogin == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordLogin, pwd)
	case "seedexams":
		return cli.seedExams()
	case "rollover":
		if err := rolloverCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *rolloverStatus {
			return cli.rolloverStatus()
		}
		return cli.rollover()
	default:
		cli.printUsage()
		return errHelp
	}
}
