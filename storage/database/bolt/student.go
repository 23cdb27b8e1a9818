package boltrepos

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/student"
)

type studentRepository struct {
	db *bolt.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *bolt.DB) *studentRepository {
	return &studentRepository{db: db}
}

// scan calls fn for every stored student.
func (repo studentRepository) scan(tx *bolt.Tx, fn func(std student.Student) error) error {
	return tx.Bucket(studentBucket).ForEach(func(_, v []byte) error {
		var std student.Student
		if err := json.Unmarshal(v, &std); err != nil {
			return errors.Wrap(err, "decoding student")
		}
		return fn(std)
	})
}

func (repo studentRepository) CheckTagUniqueness(_ context.Context, rfidTagID string) error {
	return repo.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(studentTagBucket).Get([]byte(rfidTagID)) != nil {
			return student.ErrTagExists
		}
		return nil
	})
}

func (repo studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	if std.RiskFactors == nil {
		std.RiskFactors = []string{}
	}
	err := repo.db.Update(func(tx *bolt.Tx) error {
		tags := tx.Bucket(studentTagBucket)
		if tags.Get([]byte(std.RFIDTagID)) != nil {
			return core.ErrConflict
		}
		if err := tags.Put([]byte(std.RFIDTagID), []byte(std.ID)); err != nil {
			return err
		}
		return put(tx.Bucket(studentBucket), std.ID, std)
	})
	if err != nil {
		if err == core.ErrConflict {
			return student.Student{}, err
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	var std student.Student
	var found bool
	err := repo.db.View(func(tx *bolt.Tx) error {
		var err error
		switch {
		case filter.ID != "":
			found, err = get(tx.Bucket(studentBucket), filter.ID, &std)
			return err
		case filter.RFIDTagID != "":
			id := tx.Bucket(studentTagBucket).Get([]byte(filter.RFIDTagID))
			if id == nil {
				return nil
			}
			found, err = get(tx.Bucket(studentBucket), string(id), &std)
			return err
		case filter.SchoolID != "" && filter.RollNumber != "":
			return repo.scan(tx, func(s student.Student) error {
				if !found && s.SchoolID == filter.SchoolID && s.RollNumber == filter.RollNumber {
					std, found = s, true
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	if !found {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := repo.db.View(func(tx *bolt.Tx) error {
		return repo.scan(tx, func(std student.Student) error {
			if filter != nil {
				if filter.SchoolID != "" && std.SchoolID != filter.SchoolID {
					return nil
				}
				if filter.Class != "" && std.Class != filter.Class {
					return nil
				}
				if filter.Search != "" &&
					!(core.ContainsFold(std.Name, filter.Search) || core.ContainsFold(std.RollNumber, filter.Search) || core.ContainsFold(std.RFIDTagID, filter.Search)) {
					return nil
				}
			}
			students = append(students, std)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	ordering = core.AllowedOrderings(ordering, student.OrderingFields)
	ordering = append(ordering, core.DBOrdering{Field: "created_at", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	core.SortBy(students, ordering, func(i, j int, field string) int {
		a, b := students[i], students[j]
		switch field {
		case "name":
			return strings.Compare(a.Name, b.Name)
		case "roll_number":
			return strings.Compare(a.RollNumber, b.RollNumber)
		case "class":
			return strings.Compare(a.Class, b.Class)
		case "section":
			return strings.Compare(a.Section, b.Section)
		case "dropout_risk":
			return core.CompareFloats(a.DropoutRisk, b.DropoutRisk)
		case "created_at":
			return core.CompareTimes(a.CreatedAt, b.CreatedAt)
		case "id":
			return strings.Compare(a.ID, b.ID)
		}
		return 0
	})
	return students, nil
}

func (repo studentRepository) CountStudents(_ context.Context, filter student.CountFilter) (int, error) {
	var n int
	err := repo.db.View(func(tx *bolt.Tx) error {
		return repo.scan(tx, func(std student.Student) error {
			if filter.SchoolID != "" && std.SchoolID != filter.SchoolID {
				return nil
			}
			if filter.RiskAbove != nil && !(std.DropoutRisk > *filter.RiskAbove) {
				return nil
			}
			n++
			return nil
		})
	})
	if err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	var orig student.Student
	err := repo.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(studentBucket)
		found, err := get(b, std.ID, &orig)
		if err != nil {
			return err
		}
		if !found {
			return student.ErrNotFound
		}
		// only save mutable fields
		orig.DropoutRisk = std.DropoutRisk
		orig.RiskFactors = std.RiskFactors
		orig.FaceRef = std.FaceRef
		orig.UpdatedAt = std.UpdatedAt
		return put(b, orig.ID, orig)
	})
	if err != nil {
		if err == student.ErrNotFound {
			return student.Student{}, err
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return orig, nil
}
