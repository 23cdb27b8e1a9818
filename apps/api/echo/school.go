package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/report"
	"github.com/exoshivam/smart-attendance/core/school"
)

type schoolApi struct {
	*Options
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := schoolApi{Options: opts}

	sg := g.Group("/schools", jwt, roleMiddleware(core.RoleGovernment))
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.GET("/:id/summary", api.summary)
	sg.GET("/:id/trend", api.trend)
}

// Handlers

func (api schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(ctx.Request().Context(), api.Validate, api.SchoolSvc); err != nil {
		return err
	}

	sch, err := api.SchoolSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api schoolApi) query(ctx echo.Context) error {
	filter := new(school.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	schools, err := api.SchoolSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

// summary serves the school's live summary and its riskiest students.
func (api schoolApi) summary(ctx echo.Context) error {
	detail, err := api.ReportSvc.SchoolDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "summarizing school")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api schoolApi) trend(ctx echo.Context) error {
	days, err := report.ParseWindow(ctx.QueryParam(daysParam), report.DefaultWindowDays)
	if err != nil {
		return err
	}
	points, err := api.ReportSvc.SchoolTrend(ctx.Request().Context(), ctx.Param("id"), days)
	if err != nil {
		return errors.Wrap(err, "computing school trend")
	}
	return ctx.JSON(http.StatusOK, points)
}
