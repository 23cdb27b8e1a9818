package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/school"
)

type schoolRepository struct {
	db *schoolTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) query() []school.School {
	schools := make([]school.School, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		schools = append(schools, *s)
	}
	return schools
}

func (repo *schoolRepository) CheckCodeUniqueness(_ context.Context, code string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sch := range repo.db.table {
		if sch.Code == code {
			return school.ErrCodeExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, s := range repo.db.table {
		if s.Code == sch.Code {
			return school.School{}, core.ErrConflict
		}
	}
	sch.ID = uuid.New().String()
	repo.db.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id string) (school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.table[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) QuerySchools(_ context.Context, filter *school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schools := make([]school.School, 0, len(repo.db.table))
	for _, sch := range repo.query() {
		if filter != nil {
			if filter.District != "" && sch.District != filter.District {
				continue
			}
			if filter.State != "" && sch.State != filter.State {
				continue
			}
			if filter.Search != "" && !(core.ContainsFold(sch.Name, filter.Search) || core.ContainsFold(sch.Code, filter.Search)) {
				continue
			}
		}
		schools = append(schools, sch)
	}

	ordering = core.AllowedOrderings(ordering, school.OrderingFields)
	ordering = append(ordering, core.DBOrdering{Field: "created_at", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	core.SortBy(schools, ordering, func(i, j int, field string) int {
		a, b := schools[i], schools[j]
		switch field {
		case "name":
			return strings.Compare(a.Name, b.Name)
		case "code":
			return strings.Compare(a.Code, b.Code)
		case "district":
			return strings.Compare(a.District, b.District)
		case "state":
			return strings.Compare(a.State, b.State)
		case "created_at":
			return core.CompareTimes(a.CreatedAt, b.CreatedAt)
		case "id":
			return strings.Compare(a.ID, b.ID)
		}
		return 0
	})
	return schools, nil
}

func (repo *schoolRepository) UpdateSchoolStats(_ context.Context, id string, stats school.Stats) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sch, ok := repo.db.table[id]
	if !ok {
		return school.School{}, school.ErrNotFound
	}
	updatedAt := stats.UpdatedAt
	sch.TotalStudents = stats.TotalStudents
	sch.AverageAttendance = stats.AverageAttendance
	sch.DropoutRisk = stats.DropoutRisk
	sch.StatsUpdatedAt = &updatedAt
	return *sch, nil
}
