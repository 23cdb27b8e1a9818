package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/exoshivam/smart-attendance/core"
)

// HighRiskThreshold is the dropout risk above which a student counts as high-risk (strictly greater).
const HighRiskThreshold = 0.7

type Student struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	RollNumber    string   `json:"rollNumber"`
	RFIDTagID     string   `json:"rfidTagId"`
	Class         string   `json:"class"`
	Section       string   `json:"section"`
	SchoolID      string   `json:"schoolId"`
	ParentContact string   `json:"parentContact,omitempty"`
	ParentEmail   string   `json:"parentEmail,omitempty"`
	FaceRef       string   `json:"faceRef,omitempty"`
	DropoutRisk   float64  `json:"dropoutRisk"`
	RiskFactors   []string `json:"riskFactors"`

	// cumulative counters, maintained out-of-band
	TotalDays            int     `json:"totalDays"`
	PresentDays          int     `json:"presentDays"`
	AttendancePercentage float64 `json:"attendancePercentage"`

	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

func (s Student) IsHighRisk() bool {
	return s.DropoutRisk > HighRiskThreshold
}

// NewStudent contains information needed to create a new Student.
// SchoolID is taken from the caller's token, never from the payload.
type NewStudent struct {
	Name          string `json:"name" validate:"notblank"`
	RollNumber    string `json:"rollNumber" validate:"required,alphanum_"`
	RFIDTagID     string `json:"rfidTagId" validate:"required,alphanum_"`
	Class         string `json:"class" validate:"notblank"`
	Section       string `json:"section" validate:"notblank"`
	ParentContact string `json:"parentContact"`
	ParentEmail   string `json:"parentEmail" validate:"omitempty,email"`
	SchoolID      string `json:"-"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.RollNumber = core.CleanString(ns.RollNumber)
	ns.RFIDTagID = core.CleanString(ns.RFIDTagID)
	ns.Class = core.CleanString(ns.Class)
	ns.Section = core.CleanString(ns.Section)
	ns.ParentContact = core.CleanString(ns.ParentContact)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ns.RFIDTagID)
}

// GetFilter selects a single Student by ID, by RFIDTagID or by RollNumber within SchoolID, in that order.
type GetFilter struct {
	ID         string
	RFIDTagID  string
	SchoolID   string
	RollNumber string
}

type QueryFilter struct {
	SchoolID string `query:"-"`
	Search   string `query:"search"`
	Class    string `query:"class"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Class = core.CleanString(qf.Class)
}

// CountFilter counts Students of SchoolID, optionally only those with DropoutRisk strictly above RiskAbove.
type CountFilter struct {
	SchoolID  string
	RiskAbove *float64
}

// RiskUpdate is one externally computed dropout risk score.
type RiskUpdate struct {
	RFIDTagID   string   `json:"rfidTagId" validate:"required"`
	DropoutRisk float64  `json:"dropoutRisk" validate:"risk"`
	RiskFactors []string `json:"riskFactors"`
}

// OrderingFields are the fields students can be ordered by.
var OrderingFields = []string{"name", "roll_number", "class", "section", "dropout_risk", "created_at"}
