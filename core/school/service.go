package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("school")
	ErrCodeExists = errors.New("a school with this code already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchool(ctx context.Context, id string) (School, error)
		// QuerySchools applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of School.Name or School.Code.
		QuerySchools(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]School, error)
		UpdateSchoolStats(ctx context.Context, id string, stats Stats) (School, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, code string) error
		Create(ctx context.Context, ns NewSchool) (School, error)
		GetByID(ctx context.Context, id string) (School, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]School, error)
		UpdateStats(ctx context.Context, id string, stats Stats) (School, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, code string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
		return errors.Wrap(err, "checking code uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewSchool) (School, error) {
	sch := School{
		Name:        ns.Name,
		Code:        ns.Code,
		Address:     ns.Address,
		District:    ns.District,
		State:       ns.State,
		Coordinates: Coordinates{Latitude: ns.Latitude, Longitude: ns.Longitude},
		CreatedAt:   time.Now().UTC(),
	}
	sch, err := svc.repo.CreateSchool(ctx, sch)
	if err != nil {
		if errors.Cause(err) == core.ErrConflict {
			return School{}, core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
		return School{}, errors.Wrap(err, "creating school")
	}
	return sch, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]School, error) {
	return svc.repo.QuerySchools(ctx, filter, ordering)
}

func (svc *service) UpdateStats(ctx context.Context, id string, stats Stats) (School, error) {
	if stats.UpdatedAt.IsZero() {
		stats.UpdatedAt = time.Now()
	}
	stats.UpdatedAt = stats.UpdatedAt.UTC()
	return svc.repo.UpdateSchoolStats(ctx, id, stats)
}
