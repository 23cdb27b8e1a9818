package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dgrijalva/jwt-go"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/exoshivam/smart-attendance/apps/api/echo"
	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/report"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
	"github.com/exoshivam/smart-attendance/core/testutil"
	inmemdb "github.com/exoshivam/smart-attendance/storage/database/inmem"
)

type fixture struct {
	cli         *commandLine
	out         *bytes.Buffer
	schoolRepo  school.Repository
	studentRepo student.Repository
	recordRepo  attendance.Repository
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig()
	db := inmemdb.NewDB()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)
	recordRepo := inmemdb.NewAttendanceRepository(db)
	schools := school.NewService(schoolRepo)
	validate, translator := core.NewValidator()
	student.InitValidators(validate, translator)

	out := new(bytes.Buffer)
	cli := &commandLine{
		conf: conf,
		in:   strings.NewReader(""),
		out:  out,
		openDB: func() (*sql.DB, error) {
			return sql.Open("postgres", "postgres://nobody@localhost/none?sslmode=disable")
		},
		validate:   validate,
		translator: translator,
		schools:    schools,
		students:   student.NewService(studentRepo, schools, nil),
		reports:    report.NewService(studentRepo, recordRepo, schools, report.Options{
			Calendar: testutil.NewCalendar(),
		}),
	}
	return fixture{cli: cli, out: out, schoolRepo: schoolRepo, studentRepo: studentRepo, recordRepo: recordRepo}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "help flag", args: []string{"addschool", "-h"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	var gotCommand string
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		gotCommand = command
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_guardians", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("database unavailable", func(t *testing.T) {
		gotCommand = ""
		f.cli.openDB = func() (*sql.DB, error) { return nil, errors.New("connection refused") }
		err := f.cli.run([]string{"admin", "migrate", "up"})
		assert.EqualError(t, err, "opening database: connection refused")
		assert.Empty(t, gotCommand)
	})
}

func Test_commandLine_addSchool(t *testing.T) {
	f := setup(t)
	testutil.CreateSchool(t, f.schoolRepo, "Taken", "taken", "North")

	base := []string{"addschool", "-address", "1 Main Road", "-district", "Bengaluru Urban", "-state", "Karnataka"}
	tests := []cliTest{
		{name: "no args", args: []string{"addschool"}, wantErr: errHelp},
		{name: "no code", args: []string{"addschool", "-name", "GHS"}, wantErr: errHelp},
		{name: "bad latitude", args: append(base, "-name", "GHS", "-code", "ghs", "-lat", "north"), wantErrStr: "-lat must be a number (got 'north')"},
		{name: "code taken", args: append(base, "-name", "GHS", "-code", "TAKEN"), wantErrStr: school.ErrCodeExists.Error()},
		{name: "created", args: append(base, "-name", "GHS Hebbal", "-code", "ghs-01", "-lat", "13.04", "-lng", "77.59")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	schools, err := f.schoolRepo.QuerySchools(context.Background(), &school.QueryFilter{Search: "ghs-01"}, nil)
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "GHS Hebbal", schools[0].Name)
	require.NotNil(t, schools[0].Coordinates.Latitude)
	assert.Equal(t, 13.04, *schools[0].Coordinates.Latitude)
	assert.Contains(t, f.out.String(), schools[0].ID)
}

func Test_commandLine_issueToken(t *testing.T) {
	f := setup(t)
	sch := testutil.CreateSchool(t, f.schoolRepo, "School A", "sch-a", "North")

	tests := []struct {
		cliTest
		wantRole   string
		wantSchool string
	}{
		{cliTest: cliTest{name: "no role", args: []string{"issuetoken"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "unknown role", args: []string{"issuetoken", "-role", "janitor"}, wantErrStr: "unknown role \"janitor\""}},
		{cliTest: cliTest{name: "teacher without school", args: []string{"issuetoken", "-role", "teacher"}, wantErrStr: "a teacher token needs -school"}},
		{cliTest: cliTest{name: "teacher of unknown school", args: []string{"issuetoken", "-role", "teacher", "-school", "nope"}, wantErr: school.ErrNotFound}},
		{
			cliTest:    cliTest{name: "teacher", args: []string{"issuetoken", "-role", "teacher", "-school", sch.ID, "-subject", "t-1", "-name", "Ms Rao"}},
			wantRole:   core.RoleTeacher,
			wantSchool: sch.ID,
		},
		{
			cliTest:  cliTest{name: "government ignores school", args: []string{"issuetoken", "-role", "government", "-school", sch.ID}},
			wantRole: core.RoleGovernment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.out.Reset()
			err := f.cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if tt.wantRole == "" {
				return
			}

			claims := new(echoapi.Claims)
			_, err = jwt.ParseWithClaims(strings.TrimSpace(f.out.String()), claims, func(*jwt.Token) (interface{}, error) {
				return []byte(f.cli.conf.SecretKey), nil
			})
			require.NoError(t, err)
			actor := claims.Actor()
			assert.Equal(t, tt.wantRole, actor.Role)
			assert.Equal(t, tt.wantSchool, actor.SchoolID)
			assert.NotEmpty(t, actor.ID)
		})
	}
}

func Test_commandLine_refreshStats(t *testing.T) {
	f := setup(t)
	sch := testutil.CreateSchool(t, f.schoolRepo, "School A", "sch-a", "North")
	std := testutil.CreateStudent(t, f.studentRepo, sch.ID, "Asha", "A1", "TAG1", 0.9)
	testutil.CreateStudent(t, f.studentRepo, sch.ID, "Arun", "A2", "TAG2", 0)
	testutil.CreateAttendance(t, f.recordRepo, std, civil.DateOf(testutil.Now), attendance.StatusPresent, attendance.MethodRFID)

	require.NoError(t, f.cli.run([]string{"admin", "refreshstats"}))

	got, err := f.schoolRepo.GetSchool(context.Background(), sch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalStudents)
	assert.Equal(t, 50.0, got.AverageAttendance)
	assert.Equal(t, 50.0, got.DropoutRisk)
	assert.Contains(t, f.out.String(), "sch-a\t2 students\t50.0% attendance\t50.0% high risk")
	assert.Contains(t, f.out.String(), "Refreshed 1 schools")
}

func Test_commandLine_importRisk(t *testing.T) {
	f := setup(t)
	sch := testutil.CreateSchool(t, f.schoolRepo, "School A", "sch-a", "North")
	testutil.CreateStudent(t, f.studentRepo, sch.ID, "Asha", "A1", "TAG1", 0)
	testutil.CreateStudent(t, f.studentRepo, sch.ID, "Arun", "A2", "TAG2", 0)
	testutil.CreateStudent(t, f.studentRepo, sch.ID, "Anu", "A3", "TAG3", 0.5)

	csvData := strings.Join([]string{
		"rfidTagId,dropoutRisk,riskFactors",
		"TAG1,0.82,low attendance; distance",
		"TAG2, 0.1",
		"TAG3,1.5",
		"TAG9,0.3",
		"TAG3,high",
		"TAG3,NaN",
		",0.4",
	}, "\n")

	assertRisk := func(t *testing.T, tag string, want float64, wantFactors []string) {
		t.Helper()
		std, err := f.studentRepo.GetStudent(context.Background(), student.GetFilter{RFIDTagID: tag})
		require.NoError(t, err)
		assert.Equal(t, want, std.DropoutRisk)
		if wantFactors != nil {
			assert.Equal(t, wantFactors, std.RiskFactors)
		}
	}

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "risk.csv")
		require.NoError(t, ioutil.WriteFile(path, []byte(csvData), 0o600))

		err := f.cli.run([]string{"admin", "importrisk", "-file", path})
		assert.EqualError(t, err, "5 of 7 rows failed")

		assertRisk(t, "TAG1", 0.82, []string{"low attendance", "distance"})
		assertRisk(t, "TAG2", 0.1, []string{})
		assertRisk(t, "TAG3", 0.5, nil)

		out := f.out.String()
		assert.Contains(t, out, "line 4: dropoutRisk: dropout risk must be between 0 and 1")
		assert.Contains(t, out, "line 5: student not found")
		assert.Contains(t, out, "line 6: dropoutRisk must be a number (got 'high')")
		assert.Contains(t, out, "line 7: dropoutRisk: dropout risk must be between 0 and 1")
		assert.Contains(t, out, "line 8: rfidTagId: this field is required")
		assert.Contains(t, out, "Updated 2 of 7 students")
	})

	t.Run("stdin without header", func(t *testing.T) {
		f.cli.in = strings.NewReader("TAG3,0.71\n")
		require.NoError(t, f.cli.run([]string{"admin", "importrisk", "-file", "-"}))
		assertRisk(t, "TAG3", 0.71, []string{})
	})

	t.Run("missing file", func(t *testing.T) {
		err := f.cli.run([]string{"admin", "importrisk", "-file", filepath.Join(t.TempDir(), "nope.csv")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "opening risk file")
	})

	t.Run("no file flag", func(t *testing.T) {
		assert.Equal(t, errHelp, f.cli.run([]string{"admin", "importrisk"}))
	})
}
