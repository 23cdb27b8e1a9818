// Package inmemdb keeps records in process memory. It backs the `memory` database engine and the tests.
package inmemdb

import (
	"sync"

	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
)

type (
	schoolTable struct {
		mutex sync.RWMutex
		table map[string]*school.School
	}

	studentTable struct {
		mutex sync.RWMutex
		table map[string]*student.Student
	}

	attendanceTable struct {
		mutex sync.RWMutex
		table map[string]*attendance.Attendance
		byDay map[string]string // {studentID/day: id}
	}

	DB struct {
		school     *schoolTable
		student    *studentTable
		attendance *attendanceTable
	}
)

func NewDB() *DB {
	return &DB{
		school:     &schoolTable{table: make(map[string]*school.School)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Attendance), byDay: make(map[string]string)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.attendance.mutex.Lock()
	db.attendance.table = make(map[string]*attendance.Attendance)
	db.attendance.byDay = make(map[string]string)
	db.attendance.mutex.Unlock()

	db.student.mutex.Lock()
	db.student.table = make(map[string]*student.Student)
	db.student.mutex.Unlock()

	db.school.mutex.Lock()
	db.school.table = make(map[string]*school.School)
	db.school.mutex.Unlock()
}
