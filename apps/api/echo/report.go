package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/school"
)

type reportApi struct {
	*Options
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := reportApi{Options: opts}

	rg := g.Group("/reports", jwt, roleMiddleware(core.RoleGovernment))
	rg.GET("/overview", api.overview)
	rg.GET("/districts", api.districts)
	rg.POST("/refresh", api.refresh)
}

// Handlers

func (api reportApi) overview(ctx echo.Context) error {
	overview, err := api.ReportSvc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (api reportApi) districts(ctx echo.Context) error {
	filter := new(school.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	rep, err := api.ReportSvc.Districts(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "summarizing districts")
	}
	return ctx.JSON(http.StatusOK, rep)
}

// refresh rewrites the cached stats of every school.
func (api reportApi) refresh(ctx echo.Context) error {
	schools, err := api.ReportSvc.RefreshSchoolStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "refreshing school stats")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}
