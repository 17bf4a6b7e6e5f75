package main

import (
	"context"
	"fmt"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/user"
)

// addUser creates a staff account, or resets the password of an existing one.
func (cli *commandLine) addUser(loginID, pwd string, isAdmin bool) error {
	ctx := context.Background()
	loginID = core.CleanString(loginID)
	if len(pwd) < user.PasswordMinLen {
		return fmt.Errorf("password must be at least %d characters", user.PasswordMinLen)
	}

	usr, err := cli.usrSvc.GetByLoginID(ctx, loginID)
	switch {
	case err == nil:
		if _, err = cli.usrSvc.SetPassword(ctx, usr, pwd, isAdmin); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "updated user %s (id %d)\n", usr.LoginID, usr.ID)
		return nil
	case err != user.ErrNotFound:
		return err
	}

	nu := user.NewUser{LoginID: loginID, Password: pwd, IsAdmin: isAdmin}
	if err = nu.Validate(cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err = cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created user %s (id %d)\n", usr.LoginID, usr.ID)
	return nil
}
