package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/report"
	"github.com/exoshivam/smart-attendance/core/school"
)

var (
	photoField       = "photo"
	errMissingPhoto  = errors.New("no photo uploaded")
	msgMarked        = "Attendance marked"
	msgAlreadyMarked = "Already marked for today"
)

type attendanceApi struct {
	*Options
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := attendanceApi{Options: opts}
	teacher := roleMiddleware(core.RoleTeacher)

	ag := g.Group("/attendance", jwt)
	ag.POST("/rfid-scan", api.rfidScan, teacher)
	ag.POST("/face-identify", api.faceIdentify, teacher)
	ag.POST("/mark", api.markMany, teacher)
	ag.GET("", api.query, teacher)
	ag.GET("/dashboard", api.dashboard, teacher)
	ag.GET("/daily", api.daily, roleMiddleware(core.RoleTeacher, core.RoleGovernment))
}

type (
	RFIDScanRequest struct {
		RFIDTagID string `json:"rfidTagId" validate:"required"`
	}

	MarkResponse struct {
		Message string `json:"message"`
		attendance.MarkResult
	}
)

func (r *RFIDScanRequest) Validate(api attendanceApi) error {
	r.RFIDTagID = core.CleanString(r.RFIDTagID)
	return api.Validate.Struct(r)
}

// Handlers

func (api attendanceApi) rfidScan(ctx echo.Context) error {
	var data RFIDScanRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RFIDScanRequest")
	}
	if err := data.Validate(api); err != nil {
		return err
	}

	actor := getContextActor(ctx)
	res, err := api.AttendanceSvc.MarkRFID(ctx.Request().Context(), actor.SchoolID, data.RFIDTagID)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	if res.AlreadyMarked {
		return ctx.JSON(http.StatusOK, MarkResponse{Message: msgAlreadyMarked, MarkResult: res})
	}
	return ctx.JSON(http.StatusCreated, MarkResponse{Message: msgMarked, MarkResult: res})
}

func (api attendanceApi) faceIdentify(ctx echo.Context) error {
	file, err := ctx.FormFile(photoField)
	if err != nil {
		return core.NewValidationError(errMissingPhoto, core.FieldError{Field: photoField, Error: errMissingPhoto.Error()})
	}
	src, err := file.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded photo")
	}
	defer func() { _ = src.Close() }()

	actor := getContextActor(ctx)
	res, err := api.AttendanceSvc.MarkFacial(ctx.Request().Context(), actor.SchoolID, src, file.Filename)
	if err != nil {
		return errors.Wrap(err, "marking attendance by face")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api attendanceApi) markMany(ctx echo.Context) error {
	var data attendance.ManualBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ManualBatch")
	}
	if err := api.Validate.Struct(&data); err != nil {
		return err
	}

	actor := getContextActor(ctx)
	data.SchoolID = actor.SchoolID
	data.MarkedBy = actor.ID

	results, err := api.AttendanceSvc.MarkMany(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.SchoolID = getContextActor(ctx).SchoolID

	records, err := api.AttendanceSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Attendance{}
	}
	return ctx.JSON(http.StatusOK, records)
}

// dashboard serves today's view of the teacher's school.
func (api attendanceApi) dashboard(ctx echo.Context) error {
	dash, err := api.ReportSvc.Dashboard(ctx.Request().Context(), getContextActor(ctx).SchoolID)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

// daily serves the per-day counts of a school. Teachers only see their own school.
func (api attendanceApi) daily(ctx echo.Context) error {
	actor := getContextActor(ctx)
	schoolID := ctx.QueryParam("school_id")
	if actor.IsTeacher() {
		if schoolID == "" {
			schoolID = actor.SchoolID
		} else if schoolID != actor.SchoolID {
			return school.ErrNotFound
		}
	} else if schoolID == "" {
		return core.NewArgumentError("school_id", "this field is required")
	}

	days, err := report.ParseWindow(ctx.QueryParam(daysParam), report.DefaultWindowDays)
	if err != nil {
		return err
	}
	counts, err := api.ReportSvc.DailyCounts(ctx.Request().Context(), schoolID, days)
	if err != nil {
		return errors.Wrap(err, "counting daily attendance")
	}
	return ctx.JSON(http.StatusOK, counts)
}
