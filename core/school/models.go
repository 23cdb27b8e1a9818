package school

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/exoshivam/smart-attendance/core"
)

type Coordinates struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// School holds a school's identity and location.
// TotalStudents, AverageAttendance and DropoutRisk are a cache written by the stats refresh; reports never read them.
type School struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Code              string      `json:"code"`
	Address           string      `json:"address"`
	District          string      `json:"district"`
	State             string      `json:"state"`
	Coordinates       Coordinates `json:"coordinates"`
	TotalStudents     int         `json:"totalStudents"`
	AverageAttendance float64     `json:"averageAttendance"`
	DropoutRisk       float64     `json:"dropoutRisk"`
	StatsUpdatedAt    *time.Time  `json:"statsUpdatedAt,omitempty"` // UTC
	CreatedAt         time.Time   `json:"createdAt"`                // UTC
}

// NewSchool contains information needed to create a new School.
type NewSchool struct {
	Name      string   `json:"name" validate:"notblank"`
	Code      string   `json:"code" validate:"required,alphanum_"`
	Address   string   `json:"address" validate:"notblank"`
	District  string   `json:"district" validate:"notblank"`
	State     string   `json:"state" validate:"notblank"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// Validate cleans and validates the payload, then checks that the code is not taken.
// District is stored as given: grouping policy belongs to the reports.
func (ns *NewSchool) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
	ns.State = core.CleanString(ns.State)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ns.Code)
}

type QueryFilter struct {
	District string `query:"district"`
	State    string `query:"state"`
	Search   string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.State = core.CleanString(qf.State)
	qf.Search = core.CleanString(qf.Search)
}

// Stats is the cached aggregate written back onto a School.
type Stats struct {
	TotalStudents     int
	AverageAttendance float64
	DropoutRisk       float64
	UpdatedAt         time.Time
}

// OrderingFields are the fields schools can be ordered by.
var OrderingFields = []string{"name", "code", "district", "state", "created_at"}
