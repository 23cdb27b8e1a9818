package boltrepos

import (
	"context"
	"encoding/json"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
)

type attendanceRepository struct {
	db *bolt.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *bolt.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func dayKey(studentID string, day civil.Date) []byte {
	return []byte(studentID + "/" + day.String())
}

func matches(rec attendance.Attendance, filter attendance.Filter) bool {
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

func (repo attendanceRepository) scan(tx *bolt.Tx, filter attendance.Filter, fn func(rec attendance.Attendance)) error {
	return tx.Bucket(attendanceBucket).ForEach(func(_, v []byte) error {
		var rec attendance.Attendance
		if err := json.Unmarshal(v, &rec); err != nil {
			return errors.Wrap(err, "decoding attendance")
		}
		if matches(rec, filter) {
			fn(rec)
		}
		return nil
	})
}

func (repo attendanceRepository) GetAttendance(_ context.Context, studentID string, day civil.Date) (attendance.Attendance, error) {
	var rec attendance.Attendance
	var found bool
	err := repo.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(attendanceDayBucket).Get(dayKey(studentID, day))
		if id == nil {
			return nil
		}
		var err error
		found, err = get(tx.Bucket(attendanceBucket), string(id), &rec)
		return err
	})
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "finding attendance")
	}
	if !found {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo attendanceRepository) CreateAttendance(_ context.Context, rec attendance.Attendance) (attendance.Attendance, error) {
	rec.ID = uuid.New().String()
	err := repo.db.Update(func(tx *bolt.Tx) error {
		days := tx.Bucket(attendanceDayBucket)
		key := dayKey(rec.StudentID, rec.Day)
		if days.Get(key) != nil {
			return core.ErrConflict
		}
		if err := days.Put(key, []byte(rec.ID)); err != nil {
			return err
		}
		return put(tx.Bucket(attendanceBucket), rec.ID, rec)
	})
	if err != nil {
		if err == core.ErrConflict {
			return attendance.Attendance{}, err
		}
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return rec, nil
}

func (repo attendanceRepository) UpsertAttendance(_ context.Context, rec attendance.Attendance) (attendance.Attendance, error) {
	err := repo.db.Update(func(tx *bolt.Tx) error {
		days := tx.Bucket(attendanceDayBucket)
		records := tx.Bucket(attendanceBucket)
		key := dayKey(rec.StudentID, rec.Day)

		id := days.Get(key)
		if id == nil {
			rec.ID = uuid.New().String()
			if err := days.Put(key, []byte(rec.ID)); err != nil {
				return err
			}
			return put(records, rec.ID, rec)
		}

		var orig attendance.Attendance
		if _, err := get(records, string(id), &orig); err != nil {
			return err
		}
		orig.Date = rec.Date
		orig.Status = rec.Status
		orig.Method = rec.Method
		orig.MarkedBy = rec.MarkedBy
		orig.Remarks = rec.Remarks
		orig.TimeIn = rec.TimeIn
		orig.UpdatedAt = rec.UpdatedAt
		rec = orig
		return put(records, rec.ID, rec)
	})
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return rec, nil
}

func (repo attendanceRepository) CountAttendance(_ context.Context, filter attendance.Filter) (int, error) {
	var n int
	err := repo.db.View(func(tx *bolt.Tx) error {
		return repo.scan(tx, filter, func(attendance.Attendance) { n++ })
	})
	if err != nil {
		return 0, errors.Wrap(err, "counting attendance")
	}
	return n, nil
}

func (repo attendanceRepository) QueryAttendance(_ context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	records := make([]attendance.Attendance, 0)
	err := repo.db.View(func(tx *bolt.Tx) error {
		return repo.scan(tx, filter, func(rec attendance.Attendance) { records = append(records, rec) })
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
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
