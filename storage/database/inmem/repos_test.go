package inmemdb

import (
	"testing"

	"github.com/exoshivam/smart-attendance/storage/database/storetest"
)

func TestRepositories(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Repos {
		db := NewDB()
		return storetest.Repos{
			Schools:    NewSchoolRepository(db),
			Students:   NewStudentRepository(db),
			Attendance: NewAttendanceRepository(db),
		}
	})
}
