package student

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/school"
)

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("student")
	ErrTagExists = errors.New("a student with this RFID tag already exists")
)

type (
	Repository interface {
		CheckTagUniqueness(ctx context.Context, rfidTagID string) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Name, RollNumber or RFIDTagID.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		CountStudents(ctx context.Context, filter CountFilter) (int, error)
		// UpdateStudent only writes the mutable fields: DropoutRisk, RiskFactors, FaceRef and UpdatedAt.
		UpdateStudent(ctx context.Context, std Student) (Student, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, rfidTagID string) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		GetByTag(ctx context.Context, rfidTagID string) (Student, error)
		GetByRollNumber(ctx context.Context, schoolID, rollNumber string) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		SetDropoutRisk(ctx context.Context, rfidTagID string, risk float64, factors ...string) (Student, error)
		RegisterFace(ctx context.Context, id string, photo io.Reader, filename string) (Student, error)
	}

	// FaceRegistrar enrolls a face photo under an opaque reference with the external recognition service.
	FaceRegistrar interface {
		Register(ctx context.Context, ref string, photo io.Reader, filename string) error
	}

	service struct {
		repo    Repository
		schools school.Service
		faces   FaceRegistrar
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, schools school.Service, faces FaceRegistrar) Service {
	return &service{repo: repo, schools: schools, faces: faces}
}

func (svc *service) tagExists() error {
	return core.NewValidationError(ErrTagExists, core.FieldError{Field: "rfidTagId", Error: ErrTagExists.Error()})
}

func (svc *service) CheckUniqueness(ctx context.Context, rfidTagID string) error {
	if err := svc.repo.CheckTagUniqueness(ctx, rfidTagID); err != nil {
		if errors.Cause(err) == ErrTagExists {
			return svc.tagExists()
		}
		return errors.Wrap(err, "checking tag uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if _, err := svc.schools.GetByID(ctx, ns.SchoolID); err != nil {
		return Student{}, errors.Wrap(err, "finding school")
	}

	now := time.Now().UTC()
	std := Student{
		Name:          ns.Name,
		RollNumber:    ns.RollNumber,
		RFIDTagID:     ns.RFIDTagID,
		Class:         ns.Class,
		Section:       ns.Section,
		SchoolID:      ns.SchoolID,
		ParentContact: ns.ParentContact,
		ParentEmail:   ns.ParentEmail,
		RiskFactors:   []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	std, err := svc.repo.CreateStudent(ctx, std)
	if err != nil {
		if errors.Cause(err) == core.ErrConflict {
			return Student{}, svc.tagExists()
		}
		return Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	if id == "" {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *service) GetByTag(ctx context.Context, rfidTagID string) (Student, error) {
	rfidTagID = core.CleanString(rfidTagID)
	if rfidTagID == "" {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, GetFilter{RFIDTagID: rfidTagID})
}

func (svc *service) GetByRollNumber(ctx context.Context, schoolID, rollNumber string) (Student, error) {
	rollNumber = core.CleanString(rollNumber)
	if schoolID == "" || rollNumber == "" {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, GetFilter{SchoolID: schoolID, RollNumber: rollNumber})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "roll_number", Ascending: true}}
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

// SetDropoutRisk stores an externally computed risk score for the student tagged rfidTagID.
func (svc *service) SetDropoutRisk(ctx context.Context, rfidTagID string, risk float64, factors ...string) (Student, error) {
	if !(risk >= 0 && risk <= 1) {
		return Student{}, core.NewArgumentError("dropoutRisk", "must be between 0 and 1")
	}
	std, err := svc.GetByTag(ctx, rfidTagID)
	if err != nil {
		return Student{}, err
	}
	std.DropoutRisk = risk
	if factors == nil {
		factors = []string{}
	}
	std.RiskFactors = factors
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

// RegisterFace enrolls the photo with the recognition service under the student's roll number,
// which is the reference the service hands back on identification.
func (svc *service) RegisterFace(ctx context.Context, id string, photo io.Reader, filename string) (Student, error) {
	std, err := svc.GetByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if svc.faces == nil {
		return Student{}, core.ErrUpstreamUnavailable
	}
	if err := svc.faces.Register(ctx, std.RollNumber, photo, filename); err != nil {
		return Student{}, errors.Wrap(err, "registering face")
	}
	std.FaceRef = std.RollNumber
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}
