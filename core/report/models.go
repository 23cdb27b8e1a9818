package report

import (
	"cloud.google.com/go/civil"

	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
)

// DailyCount holds the present and absent marks of one school for one day.
type DailyCount struct {
	Day     civil.Date `json:"day"`
	Present int        `json:"present"`
	Absent  int        `json:"absent"`
}

// TrendPoint is a DailyCount with the day's attendance percentage over the school's current headcount.
type TrendPoint struct {
	DailyCount
	Percentage float64 `json:"percentage"`
}

// SchoolSummary is the live rollup of one school. Percentages are on a 0-100 scale with one decimal.
type SchoolSummary struct {
	TotalStudents     int     `json:"totalStudents"`
	AttendanceRatePct float64 `json:"attendanceRatePct"`
	DropoutRiskPct    float64 `json:"dropoutRiskPct"`
	HighRiskCount     int     `json:"highRiskCount"`
}

type SchoolReport struct {
	School  school.School `json:"school"`
	Summary SchoolSummary `json:"summary"`
}

type SchoolDetail struct {
	SchoolReport
	HighRiskStudents []student.Student `json:"highRiskStudents"`
}

// Dashboard holds today's marks of a school next to its detail.
// Today counts present and absent marks only; late marks appear in Records.
type Dashboard struct {
	SchoolDetail
	Today   DailyCount              `json:"today"`
	Records []attendance.Attendance `json:"records"`
}

// DistrictSummary averages the rates of a district's schools, each school weighing the same.
// TotalStudents is a plain sum.
type DistrictSummary struct {
	SchoolCount       int     `json:"schoolCount"`
	TotalStudents     int     `json:"totalStudents"`
	AvgAttendancePct  float64 `json:"avgAttendancePct"`
	AvgDropoutRiskPct float64 `json:"avgDropoutRiskPct"`
}

type DistrictReport struct {
	Normalization string                     `json:"normalization"`
	Districts     map[string]DistrictSummary `json:"districts"`
	// SimilarDistricts lists pairs of distinct district keys that likely name the same district.
	SimilarDistricts [][2]string `json:"similarDistricts"`
}

type Overview struct {
	TotalSchools      int            `json:"totalSchools"`
	TotalStudents     int            `json:"totalStudents"`
	AvgAttendancePct  float64        `json:"avgAttendancePct"`
	AvgDropoutRiskPct float64        `json:"avgDropoutRiskPct"`
	Schools           []SchoolReport `json:"schools"`
}
