package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/exoshivam/smart-attendance/apps/api/echo"
	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/report"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
	emailsvc "github.com/exoshivam/smart-attendance/services/email"
	logsvc "github.com/exoshivam/smart-attendance/services/logger"
	"github.com/exoshivam/smart-attendance/services/metrics"
	"github.com/exoshivam/smart-attendance/services/recognition"
	"github.com/exoshivam/smart-attendance/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Store holds the repositories of the configured database engine.
type Store struct {
	dig.Out
	Schools    school.Repository
	Students   student.Repository
	Attendance attendance.Repository
	Closer     io.Closer
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) Store {
	logger := loggerParam.Logger
	if conf.Database.Engine == database.EngineMemory {
		logger.Warn("using the in-memory database: records are lost on exit")
	}
	store, err := database.OpenStore(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening store: %v", err), err)
	}
	return Store{
		Schools:    store.Schools,
		Students:   store.Students,
		Attendance: store.Attendance,
		Closer:     store.Closer,
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newCalendar(conf *core.Config) *core.Calendar {
	return core.NewCalendar(conf.Location)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	student.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

func newStudentService(repo student.Repository, schools school.Service, faces *recognition.Client) student.Service {
	return student.NewService(repo, schools, faces)
}

func newAttendanceService(
	conf *core.Config,
	repo attendance.Repository,
	students student.Service,
	cal *core.Calendar,
	faces *recognition.Client,
	recorder *metrics.Recorder,
	mailer core.EmailService,
) attendance.Service {
	return attendance.NewService(repo, students, attendance.Options{
		Calendar:      cal,
		Identifier:    faces,
		Recorder:      recorder,
		Mailer:        mailer,
		NotifyAbsence: conf.Notifications.AbsenceEmails,
	})
}

func newReportService(
	conf *core.Config,
	students student.Repository,
	records attendance.Repository,
	schools school.Service,
	cal *core.Calendar,
) report.Service {
	return report.NewService(students, records, schools, report.Options{
		Calendar:              cal,
		DistrictNormalization: conf.Reporting.DistrictNormalization,
		MaxWindowDays:         conf.Reporting.MaxWindowDays,
	})
}

type serverParams struct {
	dig.In
	Config        *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	SchoolSvc     school.Service
	StudentSvc    student.Service
	AttendanceSvc attendance.Service
	ReportSvc     report.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Config:        p.Config,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		SchoolSvc:     p.SchoolSvc,
		StudentSvc:    p.StudentSvc,
		AttendanceSvc: p.AttendanceSvc,
		ReportSvc:     p.ReportSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newCalendar))
	must(c.Provide(newValidator))
	must(c.Provide(recognition.NewClient))
	must(c.Provide(metrics.NewRecorder))
	must(c.Provide(school.NewService))
	must(c.Provide(newStudentService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newReportService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
