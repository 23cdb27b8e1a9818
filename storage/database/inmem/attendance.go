package inmemdb

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func dayKey(studentID string, day civil.Date) string {
	return studentID + "/" + day.String()
}

func matches(rec *attendance.Attendance, filter attendance.Filter) bool {
	if filter.SchoolID != "" && rec.SchoolID != filter.SchoolID {
		return false
	}
	if filter.StudentID != "" && rec.StudentID != filter.StudentID {
		return false
	}
	if filter.Status != "" && rec.Status != filter.Status {
		return false
	}
	if filter.From != (civil.Date{}) && rec.Day.Before(filter.From) {
		return false
	}
	if filter.To != (civil.Date{}) && rec.Day.After(filter.To) {
		return false
	}
	return true
}

func (repo *attendanceRepository) GetAttendance(_ context.Context, studentID string, day civil.Date) (attendance.Attendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if id, ok := repo.db.byDay[dayKey(studentID, day)]; ok {
		return *repo.db.table[id], nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) CreateAttendance(_ context.Context, rec attendance.Attendance) (attendance.Attendance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := dayKey(rec.StudentID, rec.Day)
	if _, ok := repo.db.byDay[key]; ok {
		return attendance.Attendance{}, core.ErrConflict
	}
	rec.ID = uuid.New().String()
	repo.db.table[rec.ID] = &rec
	repo.db.byDay[key] = rec.ID
	return rec, nil
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, rec attendance.Attendance) (attendance.Attendance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := dayKey(rec.StudentID, rec.Day)
	id, ok := repo.db.byDay[key]
	if !ok {
		rec.ID = uuid.New().String()
		repo.db.table[rec.ID] = &rec
		repo.db.byDay[key] = rec.ID
		return rec, nil
	}

	orig := repo.db.table[id]
	orig.Date = rec.Date
	orig.Status = rec.Status
	orig.Method = rec.Method
	orig.MarkedBy = rec.MarkedBy
	orig.Remarks = rec.Remarks
	orig.TimeIn = rec.TimeIn
	orig.UpdatedAt = rec.UpdatedAt
	return *orig, nil
}

func (repo *attendanceRepository) CountAttendance(_ context.Context, filter attendance.Filter) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, rec := range repo.db.table {
		if matches(rec, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.Attendance, 0)
	for _, rec := range repo.db.table {
		if matches(rec, filter) {
			records = append(records, *rec)
		}
	}

	// newest first
	core.SortBy(records, []core.DBOrdering{{Field: "day"}, {Field: "created_at"}, {Field: "id"}}, func(i, j int, field string) int {
		a, b := records[i], records[j]
		switch field {
		case "day":
			return strings.Compare(a.Day.String(), b.Day.String())
		case "created_at":
			return core.CompareTimes(a.CreatedAt, b.CreatedAt)
		case "id":
			return strings.Compare(a.ID, b.ID)
		}
		return 0
	})

	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}
