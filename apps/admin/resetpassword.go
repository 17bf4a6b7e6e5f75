package main

import (
	"context"
	"fmt"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/user"
)

func (cli *commandLine) resetPassword(loginID, pwd string) error {
	ctx := context.Background()
	if len(pwd) < user.PasswordMinLen {
		return fmt.Errorf("password must be at least %d characters", user.PasswordMinLen)
	}
	usr, err := cli.usrSvc.GetByLoginID(ctx, core.CleanString(loginID))
	if err != nil {
		return err
	}
	if _, err := cli.usrSvc.SetPassword(ctx, usr, pwd, false); err != nil {
		return err
	}
	return nil
}
