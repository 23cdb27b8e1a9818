package student_test

import (
	"context"
	"io"
	"io/ioutil"
	"math"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
	"github.com/exoshivam/smart-attendance/core/testutil"
	inmemdb "github.com/exoshivam/smart-attendance/storage/database/inmem"
)

type registrar struct {
	ref   string
	photo string
	err   error
}

func (r *registrar) Register(_ context.Context, ref string, photo io.Reader, _ string) error {
	if r.err != nil {
		return r.err
	}
	b, _ := ioutil.ReadAll(photo)
	r.ref, r.photo = ref, string(b)
	return nil
}

func setup(t *testing.T, faces student.FaceRegistrar) (student.Service, school.Repository, student.Repository) {
	db := inmemdb.NewDB()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)
	return student.NewService(studentRepo, school.NewService(schoolRepo), faces), schoolRepo, studentRepo
}

func Test_service_Create(t *testing.T) {
	svc, schoolRepo, _ := setup(t, nil)
	sch := testutil.CreateSchool(t, schoolRepo, "School A", "sch-a", "North")

	ns := student.NewStudent{Name: "Asha", RollNumber: "A1", RFIDTagID: "TAG1", Class: "10", Section: "A", SchoolID: sch.ID}
	std, err := svc.Create(context.Background(), ns)
	require.NoError(t, err)
	assert.NotEmpty(t, std.ID)
	assert.Equal(t, sch.ID, std.SchoolID)
	assert.Equal(t, []string{}, std.RiskFactors)
	assert.False(t, std.CreatedAt.IsZero())

	t.Run("duplicate tag", func(t *testing.T) {
		dup := ns
		dup.RollNumber = "A2"
		_, err := svc.Create(context.Background(), dup)
		require.Error(t, err)
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, []core.FieldError{{Field: "rfidTagId", Error: student.ErrTagExists.Error()}}, verr.Fields)
	})

	t.Run("unknown school", func(t *testing.T) {
		orphan := ns
		orphan.RFIDTagID = "TAG9"
		orphan.SchoolID = "nope"
		_, err := svc.Create(context.Background(), orphan)
		assert.True(t, core.IsNotFound(err))
		assert.Equal(t, school.ErrNotFound, errors.Cause(err))
	})
}

func TestNewStudent_Validate(t *testing.T) {
	svc, schoolRepo, studentRepo := setup(t, nil)
	sch := testutil.CreateSchool(t, schoolRepo, "School A", "sch-a", "North")
	testutil.CreateStudent(t, studentRepo, sch.ID, "Asha", "A1", "TAG1", 0)

	validate, translator := core.NewValidator()
	student.InitValidators(validate, translator)

	tests := []struct {
		name       string
		ns         student.NewStudent
		wantFields []string
		wantTaken  bool
	}{
		{
			name: "valid and cleaned",
			ns:   student.NewStudent{Name: "  Arun ", RollNumber: " A2", RFIDTagID: "TAG2 ", Class: "10", Section: "B", ParentEmail: " Parent@Mail.Test "},
		},
		{
			name:       "blank fields",
			ns:         student.NewStudent{Name: " ", RollNumber: "A3", RFIDTagID: "TAG3"},
			wantFields: []string{"name", "class", "section"},
		},
		{
			name:       "bad tag and email",
			ns:         student.NewStudent{Name: "Anu", RollNumber: "A4", RFIDTagID: "TAG 4", Class: "10", Section: "A", ParentEmail: "nope"},
			wantFields: []string{"rfidTagId", "parentEmail"},
		},
		{
			name:      "tag taken",
			ns:        student.NewStudent{Name: "Anu", RollNumber: "A5", RFIDTagID: "TAG1", Class: "10", Section: "A"},
			wantTaken: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ns := tc.ns
			err := ns.Validate(context.Background(), validate, svc)
			switch {
			case tc.wantTaken:
				_, ok := err.(*core.ValidationError)
				assert.True(t, ok)
			case len(tc.wantFields) > 0:
				verrs, ok := err.(validator.ValidationErrors)
				require.True(t, ok)
				var fields []string
				for _, fe := range verrs {
					fields = append(fields, fe.Field())
				}
				assert.Equal(t, tc.wantFields, fields)
			default:
				require.NoError(t, err)
				assert.Equal(t, "Arun", ns.Name)
				assert.Equal(t, "A2", ns.RollNumber)
				assert.Equal(t, "TAG2", ns.RFIDTagID)
				assert.Equal(t, "parent@mail.test", ns.ParentEmail)
			}
		})
	}
}

func Test_service_lookups(t *testing.T) {
	svc, schoolRepo, studentRepo := setup(t, nil)
	schA := testutil.CreateSchool(t, schoolRepo, "School A", "sch-a", "North")
	schB := testutil.CreateSchool(t, schoolRepo, "School B", "sch-b", "North")
	asha := testutil.CreateStudent(t, studentRepo, schA.ID, "Asha", "A1", "TAG1", 0)
	ben := testutil.CreateStudent(t, studentRepo, schB.ID, "Ben", "A1", "TAG2", 0)

	tests := []struct {
		name   string
		lookup func() (student.Student, error)
		want   student.Student
	}{
		{name: "by id", lookup: func() (student.Student, error) { return svc.GetByID(context.Background(), asha.ID) }, want: asha},
		{name: "by tag", lookup: func() (student.Student, error) { return svc.GetByTag(context.Background(), " TAG2 ") }, want: ben},
		{name: "by roll number", lookup: func() (student.Student, error) { return svc.GetByRollNumber(context.Background(), schB.ID, "A1") }, want: ben},
		{name: "empty id", lookup: func() (student.Student, error) { return svc.GetByID(context.Background(), "") }},
		{name: "unknown tag", lookup: func() (student.Student, error) { return svc.GetByTag(context.Background(), "TAG9") }},
		{name: "roll number without school", lookup: func() (student.Student, error) { return svc.GetByRollNumber(context.Background(), "", "A1") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.lookup()
			if tc.want.ID == "" {
				assert.Equal(t, student.ErrNotFound, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_service_Query(t *testing.T) {
	svc, schoolRepo, studentRepo := setup(t, nil)
	sch := testutil.CreateSchool(t, schoolRepo, "School A", "sch-a", "North")
	other := testutil.CreateSchool(t, schoolRepo, "School B", "sch-b", "North")
	testutil.CreateStudent(t, studentRepo, sch.ID, "Chen", "C3", "TAG3", 0.2)
	testutil.CreateStudent(t, studentRepo, sch.ID, "Asha", "A1", "TAG1", 0.9)
	testutil.CreateStudent(t, studentRepo, sch.ID, "Ben", "B2", "TAG2", 0.5)
	testutil.CreateStudent(t, studentRepo, other.ID, "Dev", "D4", "TAG4", 0)

	rolls := func(stds []student.Student) []string {
		out := make([]string, 0, len(stds))
		for _, std := range stds {
			out = append(out, std.RollNumber)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   *student.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "default ordering", filter: &student.QueryFilter{SchoolID: sch.ID}, want: []string{"A1", "B2", "C3"}},
		{name: "riskiest first", filter: &student.QueryFilter{SchoolID: sch.ID}, ordering: []core.DBOrdering{{Field: "dropout_risk"}}, want: []string{"A1", "B2", "C3"}},
		{name: "by name desc", filter: &student.QueryFilter{SchoolID: sch.ID}, ordering: []core.DBOrdering{{Field: "name"}}, want: []string{"C3", "B2", "A1"}},
		{name: "search", filter: &student.QueryFilter{SchoolID: sch.ID, Search: "che"}, want: []string{"C3"}},
		{name: "other school", filter: &student.QueryFilter{SchoolID: other.ID}, want: []string{"D4"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Query(context.Background(), tc.filter, tc.ordering)
			require.NoError(t, err)
			assert.Equal(t, tc.want, rolls(got))
		})
	}
}

func Test_service_SetDropoutRisk(t *testing.T) {
	svc, schoolRepo, studentRepo := setup(t, nil)
	sch := testutil.CreateSchool(t, schoolRepo, "School A", "sch-a", "North")
	testutil.CreateStudent(t, studentRepo, sch.ID, "Asha", "A1", "TAG1", 0)

	tests := []struct {
		name    string
		tag     string
		risk    float64
		factors []string
		wantErr func(error) bool
	}{
		{name: "lower bound", tag: "TAG1", risk: 0},
		{name: "upper bound", tag: "TAG1", risk: 1, factors: []string{"low attendance"}},
		{name: "negative", tag: "TAG1", risk: -0.1, wantErr: core.IsArgumentError},
		{name: "above one", tag: "TAG1", risk: 1.01, wantErr: core.IsArgumentError},
		{name: "not a number", tag: "TAG1", risk: math.NaN(), wantErr: core.IsArgumentError},
		{name: "unknown tag", tag: "TAG9", risk: 0.5, wantErr: core.IsNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.SetDropoutRisk(context.Background(), tc.tag, tc.risk, tc.factors...)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tc.wantErr(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.risk, got.DropoutRisk)

			stored, err := svc.GetByTag(context.Background(), tc.tag)
			require.NoError(t, err)
			assert.Equal(t, tc.risk, stored.DropoutRisk)
			if tc.factors == nil {
				assert.Equal(t, []string{}, stored.RiskFactors)
			} else {
				assert.Equal(t, tc.factors, stored.RiskFactors)
			}
		})
	}
}

func Test_service_RegisterFace(t *testing.T) {
	t.Run("no recognition service", func(t *testing.T) {
		svc, schoolRepo, studentRepo := setup(t, nil)
		sch := testutil.CreateSchool(t, schoolRepo, "School A", "sch-a", "North")
		std := testutil.CreateStudent(t, studentRepo, sch.ID, "Asha", "A1", "TAG1", 0)

		_, err := svc.RegisterFace(context.Background(), std.ID, strings.NewReader("face"), "face.jpg")
		assert.Equal(t, core.ErrUpstreamUnavailable, err)
	})

	t.Run("rejected photo", func(t *testing.T) {
		faces := &registrar{err: core.NewArgumentError("photo", "no face found")}
		svc, schoolRepo, studentRepo := setup(t, faces)
		sch := testutil.CreateSchool(t, schoolRepo, "School A", "sch-a", "North")
		std := testutil.CreateStudent(t, studentRepo, sch.ID, "Asha", "A1", "TAG1", 0)

		_, err := svc.RegisterFace(context.Background(), std.ID, strings.NewReader("face"), "face.jpg")
		assert.True(t, core.IsArgumentError(err))

		stored, err := svc.GetByID(context.Background(), std.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.FaceRef)
	})

	t.Run("registered under roll number", func(t *testing.T) {
		faces := new(registrar)
		svc, schoolRepo, studentRepo := setup(t, faces)
		sch := testutil.CreateSchool(t, schoolRepo, "School A", "sch-a", "North")
		std := testutil.CreateStudent(t, studentRepo, sch.ID, "Asha", "A1", "TAG1", 0)

		got, err := svc.RegisterFace(context.Background(), std.ID, strings.NewReader("face"), "face.jpg")
		require.NoError(t, err)
		assert.Equal(t, "A1", got.FaceRef)
		assert.Equal(t, "A1", faces.ref)
		assert.Equal(t, "face", faces.photo)
	})
}
