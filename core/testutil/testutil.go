// Package testutil creates fixtures through the repository interfaces, whatever store backs them.
package testutil

import (
	"context"
	"log"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
)

// Now is the instant test calendars are frozen at: a Tuesday morning, UTC.
var Now = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

// NewCalendar returns a UTC calendar frozen at Now.
func NewCalendar() *core.Calendar {
	return core.NewCalendar(time.UTC, func() time.Time { return Now })
}

// NewConfig returns a config fit for tests, without reading the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Smart Attendance",
		SecretKey: "test-secret",
		Location:  time.UTC,
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
		Reporting: core.ReportingConfig{
			DistrictNormalization: core.NormalizeNone,
			MaxWindowDays:         366,
		},
	}
}

func CreateSchool(t *testing.T, repo school.Repository, name, code, district string) school.School {
	t.Helper()
	sch, err := repo.CreateSchool(context.Background(), school.School{
		Name:      name,
		Code:      code,
		Address:   "1 Main Road",
		District:  district,
		State:     "Test State",
		CreatedAt: Now.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

func CreateStudent(t *testing.T, repo student.Repository, schoolID, name, rollNumber, tag string, risk float64) student.Student {
	t.Helper()
	std, err := repo.CreateStudent(context.Background(), student.Student{
		Name:        name,
		RollNumber:  rollNumber,
		RFIDTagID:   tag,
		Class:       "10",
		Section:     "A",
		SchoolID:    schoolID,
		DropoutRisk: risk,
		RiskFactors: []string{},
		CreatedAt:   Now.UTC(),
		UpdatedAt:   Now.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// CreateAttendance stores a record of std for day directly, bypassing the marking rules.
func CreateAttendance(t *testing.T, repo attendance.Repository, std student.Student, day civil.Date, status, method string) attendance.Attendance {
	t.Helper()
	date := day.In(time.UTC).Add(8 * time.Hour)
	rec, err := repo.CreateAttendance(context.Background(), attendance.Attendance{
		StudentID: std.ID,
		SchoolID:  std.SchoolID,
		Day:       day,
		Date:      date,
		Status:    status,
		Method:    method,
		CreatedAt: date,
		UpdatedAt: date,
	})
	if err != nil {
		t.Fatalf("CreateAttendance() failed: %v", err)
	}
	return rec
}

// NopLogger discards everything but Fatal.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(msg string, _ ...interface{}) {
	log.Fatal(msg)
}
