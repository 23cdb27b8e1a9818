package boltrepos

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/school"
)

type schoolRepository struct {
	db *bolt.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *bolt.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo schoolRepository) CheckCodeUniqueness(_ context.Context, code string) error {
	return repo.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(schoolCodeBucket).Get([]byte(code)) != nil {
			return school.ErrCodeExists
		}
		return nil
	})
}

func (repo schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	sch.ID = uuid.New().String()
	err := repo.db.Update(func(tx *bolt.Tx) error {
		codes := tx.Bucket(schoolCodeBucket)
		if codes.Get([]byte(sch.Code)) != nil {
			return core.ErrConflict
		}
		if err := codes.Put([]byte(sch.Code), []byte(sch.ID)); err != nil {
			return err
		}
		return put(tx.Bucket(schoolBucket), sch.ID, sch)
	})
	if err != nil {
		if err == core.ErrConflict {
			return school.School{}, err
		}
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) GetSchool(_ context.Context, id string) (school.School, error) {
	var sch school.School
	err := repo.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(schoolBucket), id, &sch)
		if err != nil {
			return err
		}
		if !found {
			return school.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if err == school.ErrNotFound {
			return school.School{}, err
		}
		return school.School{}, errors.Wrap(err, "finding school by ID")
	}
	return sch, nil
}

func (repo schoolRepository) QuerySchools(_ context.Context, filter *school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	schools := make([]school.School, 0)
	err := repo.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(schoolBucket).ForEach(func(_, v []byte) error {
			var sch school.School
			if err := json.Unmarshal(v, &sch); err != nil {
				return errors.Wrap(err, "decoding school")
			}
			if filter != nil {
				if filter.District != "" && sch.District != filter.District {
					return nil
				}
				if filter.State != "" && sch.State != filter.State {
					return nil
				}
				if filter.Search != "" && !(core.ContainsFold(sch.Name, filter.Search) || core.ContainsFold(sch.Code, filter.Search)) {
					return nil
				}
			}
			schools = append(schools, sch)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying schools")
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

func (repo schoolRepository) UpdateSchoolStats(_ context.Context, id string, stats school.Stats) (school.School, error) {
	var sch school.School
	err := repo.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(schoolBucket)
		found, err := get(b, id, &sch)
		if err != nil {
			return err
		}
		if !found {
			return school.ErrNotFound
		}
		updatedAt := stats.UpdatedAt.UTC()
		sch.TotalStudents = stats.TotalStudents
		sch.AverageAttendance = stats.AverageAttendance
		sch.DropoutRisk = stats.DropoutRisk
		sch.StatsUpdatedAt = &updatedAt
		return put(b, id, sch)
	})
	if err != nil {
		if err == school.ErrNotFound {
			return school.School{}, err
		}
		return school.School{}, errors.Wrap(err, "updating school stats")
	}
	return sch, nil
}
