package attendance

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/exoshivam/smart-attendance/core/student"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// Marking methods
const (
	MethodRFID   = "rfid"
	MethodFacial = "facial"
	MethodManual = "manual"
)

var (
	AllStatuses = []string{StatusPresent, StatusAbsent, StatusLate}
	AllMethods  = []string{MethodRFID, MethodFacial, MethodManual}
)

func IsValidStatus(status string) bool {
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func IsValidMethod(method string) bool {
	for _, m := range AllMethods {
		if m == method {
			return true
		}
	}
	return false
}

// IsAutomatic reports whether method is an automatic (non teacher-entered) marking path.
func IsAutomatic(method string) bool {
	return method == MethodRFID || method == MethodFacial
}

// Attendance is the single record of a student for a calendar Day.
type Attendance struct {
	ID        string     `json:"id"`
	StudentID string     `json:"studentId"`
	SchoolID  string     `json:"schoolId"`
	Day       civil.Date `json:"day"`
	Date      time.Time  `json:"date"` // UTC
	Status    string     `json:"status"`
	Method    string     `json:"method"`
	TimeIn    *time.Time `json:"timeIn"`  // UTC
	TimeOut   *time.Time `json:"timeOut"` // UTC
	MarkedBy  string     `json:"markedBy,omitempty"`
	Remarks   string     `json:"remarks,omitempty"`
	CreatedAt time.Time  `json:"createdAt"` // UTC
	UpdatedAt time.Time  `json:"updatedAt"` // UTC
}

// Mark is a request to mark one student.
// StudentRef is an RFID tag for MethodRFID and a student ID otherwise.
// A zero Date means now. A non-empty SchoolID requires the student to belong to that school.
type Mark struct {
	SchoolID   string
	StudentRef string
	Date       time.Time
	Status     string
	Method     string
	MarkedBy   string
	Remarks    string
}

type MarkResult struct {
	Record        Attendance      `json:"record"`
	Student       student.Student `json:"student"`
	AlreadyMarked bool            `json:"alreadyMarked"`
}

type FacialResult struct {
	Matched bool        `json:"matched"`
	Result  *MarkResult `json:"result,omitempty"`
}

// ManualBatch marks many students of one school with teacher-entered statuses, keyed by student ID.
type ManualBatch struct {
	SchoolID string            `json:"-"`
	MarkedBy string            `json:"-"`
	Date     time.Time         `json:"-"`
	Entries  map[string]string `json:"attendance" validate:"required,min=1,dive,keys,required,endkeys,status"`
}

// Filter selects Attendance rows. From and To are inclusive days; zero days are unbounded.
type Filter struct {
	SchoolID  string
	StudentID string
	From      civil.Date
	To        civil.Date
	Status    string
	Limit     int
}

// QueryFilter is the caller-facing form of Filter, with days formatted as YYYY-MM-DD.
type QueryFilter struct {
	SchoolID  string `query:"-"`
	StudentID string `query:"student_id"`
	Day       string `query:"day"`
	From      string `query:"from"`
	To        string `query:"to"`
	Status    string `query:"status"`
}

type StudentStats struct {
	PresentDays int     `json:"presentDays"`
	MarkedDays  int     `json:"markedDays"`
	Percentage  float64 `json:"percentage"`
}

type StudentProfile struct {
	Student student.Student `json:"student"`
	Stats   StudentStats    `json:"monthlyStats"`
	History []Attendance    `json:"history"`
}

type absenceNotice struct {
	StudentName string
	RollNumber  string
	Class       string
	Section     string
	Day         string
}
