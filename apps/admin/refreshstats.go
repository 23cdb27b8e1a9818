package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) refreshStats(ctx context.Context) error {
	schools, err := cli.reports.RefreshSchoolStats(ctx)
	if err != nil {
		return err
	}
	for _, sch := range schools {
		fmt.Fprintf(cli.out, "%s\t%d students\t%.1f%% attendance\t%.1f%% high risk\n",
			sch.Code, sch.TotalStudents, sch.AverageAttendance, sch.DropoutRisk)
	}
	fmt.Fprintf(cli.out, "Refreshed %d schools\n", len(schools))
	return nil
}
