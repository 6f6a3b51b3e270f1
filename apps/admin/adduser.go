package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Robzoly/StudyPlanner/core"
	"github.com/Robzoly/StudyPlanner/core/user"
)

// addUser updates or creates a user.User along with its progress profile.
func (cli *commandLine) addUser(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      name,
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		if usr, err = cli.usrRepo.CreateUser(ctx, usr); err != nil {
			return err
		}
		return cli.progressSvc.EnsureProfile(ctx, usr.ID)
	}

	if name != "" {
		usr.Name = name
	}
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now
	if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	return cli.progressSvc.EnsureProfile(ctx, usr.ID)
}
