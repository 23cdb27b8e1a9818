package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		students = append(students, *s)
	}
	return students
}

func (repo *studentRepository) CheckTagUniqueness(_ context.Context, rfidTagID string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, std := range repo.db.table {
		if std.RFIDTagID == rfidTagID {
			return student.ErrTagExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, s := range repo.db.table {
		if s.RFIDTagID == std.RFIDTagID {
			return student.Student{}, core.ErrConflict
		}
	}
	std.ID = uuid.New().String()
	if std.RiskFactors == nil {
		std.RiskFactors = []string{}
	}
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	switch {
	case filter.ID != "":
		if std, ok := repo.db.table[filter.ID]; ok {
			return *std, nil
		}
	case filter.RFIDTagID != "":
		for _, std := range repo.db.table {
			if std.RFIDTagID == filter.RFIDTagID {
				return *std, nil
			}
		}
	case filter.SchoolID != "" && filter.RollNumber != "":
		for _, std := range repo.db.table {
			if std.SchoolID == filter.SchoolID && std.RollNumber == filter.RollNumber {
				return *std, nil
			}
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0)
	for _, std := range repo.query() {
		if filter != nil {
			if filter.SchoolID != "" && std.SchoolID != filter.SchoolID {
				continue
			}
			if filter.Class != "" && std.Class != filter.Class {
				continue
			}
			if filter.Search != "" &&
				!(core.ContainsFold(std.Name, filter.Search) || core.ContainsFold(std.RollNumber, filter.Search) || core.ContainsFold(std.RFIDTagID, filter.Search)) {
				continue
			}
		}
		students = append(students, std)
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

func (repo *studentRepository) CountStudents(_ context.Context, filter student.CountFilter) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, std := range repo.db.table {
		if filter.SchoolID != "" && std.SchoolID != filter.SchoolID {
			continue
		}
		if filter.RiskAbove != nil && !(std.DropoutRisk > *filter.RiskAbove) {
			continue
		}
		n++
	}
	return n, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save mutable fields
	orig, ok := repo.db.table[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	orig.DropoutRisk = std.DropoutRisk
	orig.RiskFactors = std.RiskFactors
	orig.FaceRef = std.FaceRef
	orig.UpdatedAt = std.UpdatedAt
	return *orig, nil
}
