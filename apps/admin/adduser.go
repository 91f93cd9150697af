package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/user"
)

// addUser creates a user, or updates the password and role of an existing one.
func (cli *commandLine) addUser(uname, name, email, role, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	if name == "" {
		name = uname
	}
	if !core.ContainsString(user.AllRoles, role) {
		return fmt.Errorf("invalid role %q", role)
	}

	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		if err = cli.usrSvc.CheckUniqueness(ctx, uname, email); err != nil {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:     name,
			Username: uname,
			Email:    email,
			Role:     role,
			Password: pwd,
		})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "created %s %q\n", usr.Role, usr.Username)
		return nil
	}

	uu := user.UpdateUser{Name: usr.Name, Username: usr.Username, Email: usr.Email, Role: role, Password: pwd}
	if email != "" && email != usr.Email {
		if err = cli.usrSvc.CheckUniqueness(ctx, uname, email, usr); err != nil {
			return err
		}
		uu.Email = email
	}
	if usr, err = cli.usrSvc.Update(ctx, usr, uu); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "updated %s %q\n", usr.Role, usr.Username)
	return nil
}
