package main

import (
	"context"
	"time"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/user"
)

// addUser updates or creates a user.User. CLI-created accounts skip email
// verification: the operator vouches for them.
func (cli *commandLine) addUser(name, email, pwd string, roles []string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Email:      email,
			VerifiedAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	usr.Name = core.CleanString(name)
	usr.Roles = roles
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
