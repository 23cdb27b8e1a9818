package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	echoapi "github.com/exoshivam/smart-attendance/apps/api/echo"
	"github.com/exoshivam/smart-attendance/core"
)

// issueToken prints a signed API token for actor. Teacher tokens must be bound to an existing school.
func (cli *commandLine) issueToken(ctx context.Context, actor core.Actor) error {
	switch actor.Role {
	case core.RoleTeacher:
		if actor.SchoolID == "" {
			return errors.New("a teacher token needs -school")
		}
		if _, err := cli.schools.GetByID(ctx, actor.SchoolID); err != nil {
			return err
		}
	case core.RoleGovernment:
		actor.SchoolID = ""
	default:
		return errors.Errorf("unknown role %q", actor.Role)
	}
	if actor.ID == "" {
		actor.ID = uuid.New().String()
	}

	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, actor))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
