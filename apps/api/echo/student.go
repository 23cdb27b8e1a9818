package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/student"
)

type studentApi struct {
	*Options
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := studentApi{Options: opts}

	sg := g.Group("/students", jwt, roleMiddleware(core.RoleTeacher))
	sg.POST("", api.create)
	sg.GET("", api.query)

	// detail endpoints
	dg := sg.Group("/:id", api.ownStudentMiddleware)
	dg.GET("", api.profile)
	dg.POST("/face", api.registerFace)
}

// ownStudentMiddleware loads the :id Student into the context. Students of other schools are not found.
func (api studentApi) ownStudentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		std, err := api.StudentSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding student by ID")
		}
		if std.SchoolID != getContextActor(ctx).SchoolID {
			return student.ErrNotFound
		}
		ctx.Set("object", std)
		return next(ctx)
	}
}

// Handlers

func (api studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	data.SchoolID = getContextActor(ctx).SchoolID
	if err := data.Validate(ctx.Request().Context(), api.Validate, api.StudentSvc); err != nil {
		return err
	}

	std, err := api.StudentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	filter.SchoolID = getContextActor(ctx).SchoolID
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.StudentSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api studentApi) profile(ctx echo.Context) error {
	std := ctx.Get("object").(student.Student)
	profile, err := api.AttendanceSvc.StudentProfile(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "building student profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (api studentApi) registerFace(ctx echo.Context) error {
	std := ctx.Get("object").(student.Student)

	file, err := ctx.FormFile(photoField)
	if err != nil {
		return core.NewValidationError(errMissingPhoto, core.FieldError{Field: photoField, Error: errMissingPhoto.Error()})
	}
	src, err := file.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded photo")
	}
	defer func() { _ = src.Close() }()

	std, err = api.StudentSvc.RegisterFace(ctx.Request().Context(), std.ID, src, file.Filename)
	if err != nil {
		return errors.Wrap(err, "registering face")
	}
	return ctx.JSON(http.StatusOK, std)
}
