package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core/school"
)

func parseCoordinate(name, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, errors.Errorf("-%s must be a number (got '%s')", name, value)
	}
	return &f, nil
}

func (cli *commandLine) addSchool(ctx context.Context, ns school.NewSchool) error {
	if err := ns.Validate(ctx, cli.validate, cli.schools); err != nil {
		return err
	}
	sch, err := cli.schools.Create(ctx, ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "School %q created: %s\n", sch.Code, sch.ID)
	return nil
}
