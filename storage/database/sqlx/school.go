package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/school"
)

const schoolColumns = `id, name, code, address, district, state, latitude, longitude,
	total_students, average_attendance, dropout_risk, stats_updated_at, created_at`

type schoolRow struct {
	ID                string       `db:"id"`
	Name              string       `db:"name"`
	Code              string       `db:"code"`
	Address           string       `db:"address"`
	District          string       `db:"district"`
	State             string       `db:"state"`
	Latitude          null.Float64 `db:"latitude"`
	Longitude         null.Float64 `db:"longitude"`
	TotalStudents     int          `db:"total_students"`
	AverageAttendance float64      `db:"average_attendance"`
	DropoutRisk       float64      `db:"dropout_risk"`
	StatsUpdatedAt    null.Time    `db:"stats_updated_at"`
	CreatedAt         time.Time    `db:"created_at"`
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo schoolRepository) toRow(sch school.School) schoolRow {
	return schoolRow{
		ID:                sch.ID,
		Name:              sch.Name,
		Code:              sch.Code,
		Address:           sch.Address,
		District:          sch.District,
		State:             sch.State,
		Latitude:          null.Float64FromPtr(sch.Coordinates.Latitude),
		Longitude:         null.Float64FromPtr(sch.Coordinates.Longitude),
		TotalStudents:     sch.TotalStudents,
		AverageAttendance: sch.AverageAttendance,
		DropoutRisk:       sch.DropoutRisk,
		StatsUpdatedAt:    null.TimeFromPtr(sch.StatsUpdatedAt),
		CreatedAt:         sch.CreatedAt.UTC(),
	}
}

func (repo schoolRepository) fromRow(row schoolRow) school.School {
	return school.School{
		ID:                row.ID,
		Name:              row.Name,
		Code:              row.Code,
		Address:           row.Address,
		District:          row.District,
		State:             row.State,
		Coordinates:       school.Coordinates{Latitude: row.Latitude.Ptr(), Longitude: row.Longitude.Ptr()},
		TotalStudents:     row.TotalStudents,
		AverageAttendance: row.AverageAttendance,
		DropoutRisk:       row.DropoutRisk,
		StatsUpdatedAt:    row.StatsUpdatedAt.Ptr(),
		CreatedAt:         row.CreatedAt.UTC(),
	}
}

func (repo schoolRepository) CheckCodeUniqueness(ctx context.Context, code string) error {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM school WHERE code = $1)`
	if err := repo.db.GetContext(ctx, &exists, q, code); err != nil {
		return errors.Wrap(err, "checking school code uniqueness")
	}
	if exists {
		return school.ErrCodeExists
	}
	return nil
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	sch.ID = uuid.New().String()
	q := `INSERT INTO school (` + schoolColumns + `) VALUES (:id, :name, :code, :address, :district, :state, :latitude, :longitude,
		:total_students, :average_attendance, :dropout_risk, :stats_updated_at, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toRow(sch)); err != nil {
		return school.School{}, trapUniqueErr(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	if !isUUID(id) {
		return school.School{}, school.ErrNotFound
	}
	var row schoolRow
	q := `SELECT ` + schoolColumns + ` FROM school WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrNotFound, "finding school by ID")
	}
	return repo.fromRow(row), nil
}

func (repo schoolRepository) QuerySchools(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	var w where
	if filter != nil {
		if filter.District != "" {
			w.add("district = ?", filter.District)
		}
		if filter.State != "" {
			w.add("state = ?", filter.State)
		}
		// schools with Name or Code matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(name ILIKE ? OR code ILIKE ?)", val, val)
		}
	}

	q := `SELECT ` + schoolColumns + ` FROM school` + w.String() +
		orderBy(ordering, school.OrderingFields, core.DBOrdering{Field: "created_at", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})

	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, repo.fromRow(row))
	}
	return schools, nil
}

func (repo schoolRepository) UpdateSchoolStats(ctx context.Context, id string, stats school.Stats) (school.School, error) {
	if !isUUID(id) {
		return school.School{}, school.ErrNotFound
	}
	var row schoolRow
	q := `UPDATE school SET total_students = $2, average_attendance = $3, dropout_risk = $4, stats_updated_at = $5
		WHERE id = $1 RETURNING ` + schoolColumns
	err := repo.db.GetContext(ctx, &row, q, id, stats.TotalStudents, stats.AverageAttendance, stats.DropoutRisk, stats.UpdatedAt.UTC())
	if err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrNotFound, "updating school stats")
	}
	return repo.fromRow(row), nil
}
