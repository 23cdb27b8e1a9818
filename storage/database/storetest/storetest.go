// Package storetest holds the behaviour every repository implementation must share.
// Store packages run it from their own tests against a fresh store.
package storetest

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
	"github.com/exoshivam/smart-attendance/core/testutil"
)

// Repos is one store's set of repositories.
type Repos struct {
	Schools    school.Repository
	Students   student.Repository
	Attendance attendance.Repository
}

// Run runs every repository check, each against the fresh store newRepos returns.
func Run(t *testing.T, newRepos func(t *testing.T) Repos) {
	t.Run("schools", func(t *testing.T) { testSchools(t, newRepos(t)) })
	t.Run("students", func(t *testing.T) { testStudents(t, newRepos(t)) })
	t.Run("attendance", func(t *testing.T) { testAttendance(t, newRepos(t)) })
}

func testSchools(t *testing.T, r Repos) {
	ctx := context.Background()
	a := testutil.CreateSchool(t, r.Schools, "Alpha", "alpha", "North")
	testutil.CreateSchool(t, r.Schools, "Beta", "beta", "South")

	got, err := r.Schools.GetSchool(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = r.Schools.GetSchool(ctx, "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	assert.Equal(t, school.ErrNotFound, err)

	assert.Equal(t, school.ErrCodeExists, errors.Cause(r.Schools.CheckCodeUniqueness(ctx, "alpha")))
	assert.NoError(t, r.Schools.CheckCodeUniqueness(ctx, "gamma"))

	_, err = r.Schools.CreateSchool(ctx, school.School{Name: "Alpha 2", Code: "alpha", CreatedAt: testutil.Now})
	assert.Equal(t, core.ErrConflict, errors.Cause(err))

	schools, err := r.Schools.QuerySchools(ctx, &school.QueryFilter{District: "South"}, nil)
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "Beta", schools[0].Name)

	schools, err = r.Schools.QuerySchools(ctx, nil, []core.DBOrdering{{Field: "name"}})
	require.NoError(t, err)
	require.Len(t, schools, 2)
	assert.Equal(t, "Beta", schools[0].Name)

	at := testutil.Now.Add(time.Hour)
	updated, err := r.Schools.UpdateSchoolStats(ctx, a.ID, school.Stats{TotalStudents: 3, AverageAttendance: 66.7, DropoutRisk: 33.3, UpdatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.TotalStudents)
	got, err = r.Schools.GetSchool(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 66.7, got.AverageAttendance)
	require.NotNil(t, got.StatsUpdatedAt)
	assert.True(t, got.StatsUpdatedAt.Equal(at))
	assert.Equal(t, "Alpha", got.Name)
}

func testStudents(t *testing.T, r Repos) {
	ctx := context.Background()
	schA := testutil.CreateSchool(t, r.Schools, "Alpha", "alpha", "North")
	schB := testutil.CreateSchool(t, r.Schools, "Beta", "beta", "North")
	asha := testutil.CreateStudent(t, r.Students, schA.ID, "Asha", "A1", "TAG1", 0.9)
	testutil.CreateStudent(t, r.Students, schA.ID, "Arun", "A2", "TAG2", 0.7)
	ben := testutil.CreateStudent(t, r.Students, schB.ID, "Ben", "A1", "TAG3", 0.71)

	t.Run("unique tag", func(t *testing.T) {
		assert.Equal(t, student.ErrTagExists, errors.Cause(r.Students.CheckTagUniqueness(ctx, "TAG1")))
		assert.NoError(t, r.Students.CheckTagUniqueness(ctx, "TAG9"))

		_, err := r.Students.CreateStudent(ctx, student.Student{Name: "Dup", RollNumber: "A9", RFIDTagID: "TAG1", SchoolID: schA.ID})
		assert.Equal(t, core.ErrConflict, errors.Cause(err))
	})

	t.Run("get", func(t *testing.T) {
		filters := []student.GetFilter{
			{ID: ben.ID},
			{RFIDTagID: "TAG3"},
			{SchoolID: schB.ID, RollNumber: "A1"},
		}
		for _, f := range filters {
			got, err := r.Students.GetStudent(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, ben.ID, got.ID)
		}

		_, err := r.Students.GetStudent(ctx, student.GetFilter{RFIDTagID: "TAG9"})
		assert.Equal(t, student.ErrNotFound, err)
		_, err = r.Students.GetStudent(ctx, student.GetFilter{SchoolID: schB.ID, RollNumber: "A2"})
		assert.Equal(t, student.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		stds, err := r.Students.QueryStudents(ctx, &student.QueryFilter{SchoolID: schA.ID}, []core.DBOrdering{{Field: "roll_number"}})
		require.NoError(t, err)
		require.Len(t, stds, 2)
		assert.Equal(t, "A2", stds[0].RollNumber)

		stds, err = r.Students.QueryStudents(ctx, &student.QueryFilter{Search: "tag3"}, nil)
		require.NoError(t, err)
		require.Len(t, stds, 1)
		assert.Equal(t, ben.ID, stds[0].ID)
	})

	t.Run("count", func(t *testing.T) {
		threshold := student.HighRiskThreshold
		tests := []struct {
			filter student.CountFilter
			want   int
		}{
			{filter: student.CountFilter{}, want: 3},
			{filter: student.CountFilter{SchoolID: schA.ID}, want: 2},
			{filter: student.CountFilter{SchoolID: schA.ID, RiskAbove: &threshold}, want: 1},
			{filter: student.CountFilter{RiskAbove: &threshold}, want: 2},
		}
		for _, tc := range tests {
			n, err := r.Students.CountStudents(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
		}
	})

	t.Run("update writes mutable fields only", func(t *testing.T) {
		changed := asha
		changed.Name = "Renamed"
		changed.DropoutRisk = 0.1
		changed.RiskFactors = []string{"distance"}
		changed.FaceRef = "A1"
		changed.UpdatedAt = testutil.Now.Add(time.Hour)

		got, err := r.Students.UpdateStudent(ctx, changed)
		require.NoError(t, err)
		assert.Equal(t, "Asha", got.Name)
		assert.Equal(t, 0.1, got.DropoutRisk)
		assert.Equal(t, []string{"distance"}, got.RiskFactors)
		assert.Equal(t, "A1", got.FaceRef)

		stored, err := r.Students.GetStudent(ctx, student.GetFilter{ID: asha.ID})
		require.NoError(t, err)
		assert.Equal(t, got.DropoutRisk, stored.DropoutRisk)
		assert.True(t, stored.UpdatedAt.Equal(changed.UpdatedAt))
	})
}

func testAttendance(t *testing.T, r Repos) {
	ctx := context.Background()
	sch := testutil.CreateSchool(t, r.Schools, "Alpha", "alpha", "North")
	asha := testutil.CreateStudent(t, r.Students, sch.ID, "Asha", "A1", "TAG1", 0)
	arun := testutil.CreateStudent(t, r.Students, sch.ID, "Arun", "A2", "TAG2", 0)

	today := civil.DateOf(testutil.Now)
	first := testutil.CreateAttendance(t, r.Attendance, asha, today, attendance.StatusPresent, attendance.MethodRFID)
	testutil.CreateAttendance(t, r.Attendance, asha, today.AddDays(-1), attendance.StatusAbsent, attendance.MethodManual)
	testutil.CreateAttendance(t, r.Attendance, asha, today.AddDays(-2), attendance.StatusLate, attendance.MethodManual)
	testutil.CreateAttendance(t, r.Attendance, arun, today, attendance.StatusAbsent, attendance.MethodManual)

	t.Run("one record per student and day", func(t *testing.T) {
		_, err := r.Attendance.CreateAttendance(ctx, attendance.Attendance{
			StudentID: asha.ID, SchoolID: sch.ID, Day: today, Date: testutil.Now,
			Status: attendance.StatusPresent, Method: attendance.MethodFacial,
		})
		assert.Equal(t, core.ErrConflict, errors.Cause(err))

		got, err := r.Attendance.GetAttendance(ctx, asha.ID, today)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, attendance.MethodRFID, got.Method)

		_, err = r.Attendance.GetAttendance(ctx, asha.ID, today.AddDays(-3))
		assert.Equal(t, attendance.ErrNotFound, err)
	})

	t.Run("count", func(t *testing.T) {
		tests := []struct {
			name   string
			filter attendance.Filter
			want   int
		}{
			{name: "all", filter: attendance.Filter{SchoolID: sch.ID}, want: 4},
			{name: "one day", filter: attendance.Filter{SchoolID: sch.ID, From: today, To: today}, want: 2},
			{name: "one day absent", filter: attendance.Filter{SchoolID: sch.ID, From: today, To: today, Status: attendance.StatusAbsent}, want: 1},
			{name: "student range", filter: attendance.Filter{StudentID: asha.ID, From: today.AddDays(-1), To: today}, want: 2},
			{name: "open ended", filter: attendance.Filter{StudentID: asha.ID, To: today.AddDays(-1)}, want: 2},
			{name: "other school", filter: attendance.Filter{SchoolID: "other"}, want: 0},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				n, err := r.Attendance.CountAttendance(ctx, tc.filter)
				require.NoError(t, err)
				assert.Equal(t, tc.want, n)
			})
		}
	})

	t.Run("query newest first with limit", func(t *testing.T) {
		recs, err := r.Attendance.QueryAttendance(ctx, attendance.Filter{StudentID: asha.ID})
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, []civil.Date{today, today.AddDays(-1), today.AddDays(-2)}, []civil.Date{recs[0].Day, recs[1].Day, recs[2].Day})

		recs, err = r.Attendance.QueryAttendance(ctx, attendance.Filter{StudentID: asha.ID, Limit: 2})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, today.AddDays(-1), recs[1].Day)
	})

	t.Run("upsert keeps identity", func(t *testing.T) {
		later := testutil.Now.Add(2 * time.Hour)
		got, err := r.Attendance.UpsertAttendance(ctx, attendance.Attendance{
			StudentID: asha.ID, SchoolID: sch.ID, Day: today, Date: later,
			Status: attendance.StatusLate, Method: attendance.MethodManual, MarkedBy: "teacher-1",
			CreatedAt: later, UpdatedAt: later,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.True(t, got.CreatedAt.Equal(first.CreatedAt))
		assert.True(t, got.UpdatedAt.Equal(later))
		assert.Equal(t, attendance.StatusLate, got.Status)
		assert.Equal(t, "teacher-1", got.MarkedBy)

		stored, err := r.Attendance.GetAttendance(ctx, asha.ID, today)
		require.NoError(t, err)
		assert.Equal(t, attendance.MethodManual, stored.Method)

		n, err := r.Attendance.CountAttendance(ctx, attendance.Filter{StudentID: asha.ID})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		fresh, err := r.Attendance.UpsertAttendance(ctx, attendance.Attendance{
			StudentID: arun.ID, SchoolID: sch.ID, Day: today.AddDays(-1), Date: later,
			Status: attendance.StatusPresent, Method: attendance.MethodManual, CreatedAt: later, UpdatedAt: later,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, fresh.ID)
		assert.NotEqual(t, first.ID, fresh.ID)
	})
}
