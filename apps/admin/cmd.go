package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/report"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf   *core.Config
	in     io.Reader
	out    io.Writer
	openDB func() (*sql.DB, error)

	validate   *validator.Validate
	translator ut.Translator
	schools    school.Service
	students   student.Service
	reports    report.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the postgres database")
	fmt.Fprintln(cli.out, "  addschool -name NAME -code CODE -address ADDRESS -district DISTRICT -state STATE [-lat LAT -lng LNG] - register a school")
	fmt.Fprintln(cli.out, "  issuetoken -role teacher|government [-school SCHOOL_ID] [-subject ID] [-name NAME] - print an API token")
	fmt.Fprintln(cli.out, "  refreshstats - recompute the cached statistics of every school")
	fmt.Fprintln(cli.out, "  importrisk -file CSV|- - import dropout risk scores (rfidTagId,dropoutRisk[,riskFactors])")
}

// describe renders validation failures as "field: message" pairs in the translator's language.
func (cli *commandLine) describe(err error) string {
	verrs, ok := pkgerrors.Cause(err).(validator.ValidationErrors)
	if !ok || cli.translator == nil {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, verr := range verrs {
		msgs = append(msgs, verr.Field()+": "+verr.Translate(cli.translator))
	}
	return strings.Join(msgs, "; ")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses args into fs, turning a help request into errHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addSchoolCmd := cli.newFlagSet("addschool")
	addSchoolName := addSchoolCmd.String("name", "", "The school's name.")
	addSchoolCode := addSchoolCmd.String("code", "", "The school's unique code.")
	addSchoolAddress := addSchoolCmd.String("address", "", "The school's address.")
	addSchoolDistrict := addSchoolCmd.String("district", "", "The school's district, stored as given.")
	addSchoolState := addSchoolCmd.String("state", "", "The school's state.")
	addSchoolLat := addSchoolCmd.String("lat", "", "Optional latitude.")
	addSchoolLng := addSchoolCmd.String("lng", "", "Optional longitude.")

	issueTokenCmd := cli.newFlagSet("issuetoken")
	issueTokenRole := issueTokenCmd.String("role", "", "The caller's role: teacher or government.")
	issueTokenSchool := issueTokenCmd.String("school", "", "The teacher's school ID.")
	issueTokenSubject := issueTokenCmd.String("subject", "", "The caller's identifier, recorded as markedBy. Generated when empty.")
	issueTokenName := issueTokenCmd.String("name", "", "The caller's display name.")

	importRiskCmd := cli.newFlagSet("importrisk")
	importRiskFile := importRiskCmd.String("file", "", "The CSV file to import, or - for stdin.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addschool":
		if err := parse(addSchoolCmd, args[2:]); err != nil {
			return err
		}
		if *addSchoolName == "" || *addSchoolCode == "" {
			addSchoolCmd.Usage()
			return errHelp
		}
		ns := school.NewSchool{
			Name:     *addSchoolName,
			Code:     *addSchoolCode,
			Address:  *addSchoolAddress,
			District: *addSchoolDistrict,
			State:    *addSchoolState,
		}
		var err error
		if ns.Latitude, err = parseCoordinate("lat", *addSchoolLat); err != nil {
			return err
		}
		if ns.Longitude, err = parseCoordinate("lng", *addSchoolLng); err != nil {
			return err
		}
		return cli.addSchool(ctx, ns)

	case "issuetoken":
		if err := parse(issueTokenCmd, args[2:]); err != nil {
			return err
		}
		if *issueTokenRole == "" {
			issueTokenCmd.Usage()
			return errHelp
		}
		return cli.issueToken(ctx, core.Actor{
			ID:       *issueTokenSubject,
			Name:     *issueTokenName,
			Role:     *issueTokenRole,
			SchoolID: *issueTokenSchool,
		})

	case "refreshstats":
		return cli.refreshStats(ctx)

	case "importrisk":
		if err := parse(importRiskCmd, args[2:]); err != nil {
			return err
		}
		if *importRiskFile == "" {
			importRiskCmd.Usage()
			return errHelp
		}
		return cli.importRisk(ctx, *importRiskFile)

	default:
		cli.printUsage()
		return errHelp
	}
}
