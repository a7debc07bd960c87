package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core/user"
)

// setRole grants a role to the user with that email; the other roles are kept.
func (cli *commandLine) setRole(ctx context.Context, email, role string) error {
	valid := false
	for _, r := range user.AllRoles {
		if r == role {
			valid = true
			break
		}
	}
	if !valid {
		return errInvalidRole
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.HasAnyRole(role) {
		_, _ = fmt.Fprintf(cli.out, "%s already has role %s\n", usr.Email, role)
		return nil
	}

	roles := append(append([]string{}, usr.Roles...), role)
	if _, err = cli.usrSvc.UpdateRoles(ctx, cliActor, usr.ID, roles); err != nil {
		return errors.Wrap(err, "updating roles")
	}
	_, _ = fmt.Fprintf(cli.out, "granted %s to %s\n", role, usr.Email)
	return nil
}

// purgeUsers deletes all deactivated users.
func (cli *commandLine) purgeUsers(ctx context.Context, yes bool) error {
	inactive := false
	users, err := cli.usrSvc.Query(ctx, &user.QueryFilter{IsActive: &inactive}, nil)
	if err != nil {
		return errors.Wrap(err, "querying deactivated users")
	}
	if len(users) == 0 {
		_, _ = fmt.Fprintln(cli.out, "no deactivated users")
		return nil
	}

	if !yes && !cli.confirm(fmt.Sprintf("delete %d deactivated users?", len(users))) {
		return errAborted
	}

	ids := make([]string, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	cnt, err := cli.usrSvc.Delete(ctx, cliActor, ids...)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	_, _ = fmt.Fprintf(cli.out, "deleted %d users\n", cnt)
	return nil
}
