package school_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/testutil"
	inmemdb "github.com/exoshivam/smart-attendance/storage/database/inmem"
)

func setup() school.Service {
	return school.NewService(inmemdb.NewSchoolRepository(inmemdb.NewDB()))
}

func TestNewSchool_Validate(t *testing.T) {
	svc := setup()
	_, err := svc.Create(context.Background(), school.NewSchool{Name: "Taken", Code: "taken", Address: "x", District: "North", State: "S"})
	require.NoError(t, err)
	validate, _ := core.NewValidator()

	lat, badLat := 12.9, 91.0
	tests := []struct {
		name       string
		ns         school.NewSchool
		wantFields []string
		wantTaken  bool
	}{
		{
			name: "valid and cleaned",
			ns:   school.NewSchool{Name: " GHS Hebbal ", Code: " GHS-01 ", Address: "1 Main Road", District: " Bengaluru Urban ", State: "Karnataka", Latitude: &lat},
		},
		{
			name:       "missing fields",
			ns:         school.NewSchool{Name: "GHS", Code: "ghs"},
			wantFields: []string{"address", "district", "state"},
		},
		{
			name:       "bad code and latitude",
			ns:         school.NewSchool{Name: "GHS", Code: "ghs 01", Address: "x", District: "North", State: "S", Latitude: &badLat},
			wantFields: []string{"code", "latitude"},
		},
		{
			name:      "code taken",
			ns:        school.NewSchool{Name: "GHS", Code: " TAKEN", Address: "x", District: "North", State: "S"},
			wantTaken: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ns := tc.ns
			err := ns.Validate(context.Background(), validate, svc)
			switch {
			case tc.wantTaken:
				verr, ok := err.(*core.ValidationError)
				require.True(t, ok)
				assert.Equal(t, "code", verr.Fields[0].Field)
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
				assert.Equal(t, "GHS Hebbal", ns.Name)
				assert.Equal(t, "ghs-01", ns.Code)
				// districts keep their spelling, reports decide how to group them
				assert.Equal(t, " Bengaluru Urban ", ns.District)
			}
		})
	}
}

func Test_service_Create(t *testing.T) {
	svc := setup()
	lat, lng := 12.97, 77.59

	sch, err := svc.Create(context.Background(), school.NewSchool{
		Name: "GHS", Code: "ghs", Address: "x", District: "North", State: "S", Latitude: &lat, Longitude: &lng,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sch.ID)
	assert.Equal(t, &lat, sch.Coordinates.Latitude)
	assert.Nil(t, sch.StatsUpdatedAt)

	got, err := svc.GetByID(context.Background(), sch.ID)
	require.NoError(t, err)
	assert.Equal(t, sch, got)

	t.Run("duplicate code", func(t *testing.T) {
		_, err := svc.Create(context.Background(), school.NewSchool{Name: "GHS 2", Code: "ghs", Address: "y", District: "North", State: "S"})
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.GetByID(context.Background(), "nope")
		assert.Equal(t, school.ErrNotFound, err)
	})
}

func Test_service_Query(t *testing.T) {
	db := inmemdb.NewDB()
	repo := inmemdb.NewSchoolRepository(db)
	svc := school.NewService(repo)
	testutil.CreateSchool(t, repo, "Beta", "beta", "North")
	testutil.CreateSchool(t, repo, "Alpha", "alpha", "South")
	testutil.CreateSchool(t, repo, "Gamma", "gamma", "North")

	names := func(schools []school.School) []string {
		out := make([]string, 0, len(schools))
		for _, sch := range schools {
			out = append(out, sch.Name)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   *school.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all by name", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []string{"Alpha", "Beta", "Gamma"}},
		{name: "district", filter: &school.QueryFilter{District: "North"}, ordering: []core.DBOrdering{{Field: "name"}}, want: []string{"Gamma", "Beta"}},
		{name: "search", filter: &school.QueryFilter{Search: "ALP"}, want: []string{"Alpha"}},
		{name: "unknown ordering field ignored", ordering: []core.DBOrdering{{Field: "password"}, {Field: "code", Ascending: true}}, want: []string{"Alpha", "Beta", "Gamma"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Query(context.Background(), tc.filter, tc.ordering)
			require.NoError(t, err)
			assert.Equal(t, tc.want, names(got))
		})
	}
}

func Test_service_UpdateStats(t *testing.T) {
	repo := inmemdb.NewSchoolRepository(inmemdb.NewDB())
	svc := school.NewService(repo)
	sch := testutil.CreateSchool(t, repo, "Alpha", "alpha", "South")

	at := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	got, err := svc.UpdateStats(context.Background(), sch.ID, school.Stats{TotalStudents: 40, AverageAttendance: 87.5, DropoutRisk: 12.5, UpdatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, 40, got.TotalStudents)
	assert.Equal(t, 87.5, got.AverageAttendance)
	assert.Equal(t, 12.5, got.DropoutRisk)
	require.NotNil(t, got.StatsUpdatedAt)
	assert.Equal(t, at.UTC(), *got.StatsUpdatedAt)

	_, err = svc.UpdateStats(context.Background(), "nope", school.Stats{})
	assert.True(t, core.IsNotFound(err))
}
