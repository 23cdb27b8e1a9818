package attendance

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/student"
)

const (
	statsWindowDays  = 30
	historyLimit     = 30
	absenceNoticeTpl = "absence_notice"
)

// Marking outcomes reported to the Recorder.
const (
	OutcomeCreated       = "created"
	OutcomeUpdated       = "updated"
	OutcomeAlreadyMarked = "already_marked"
	OutcomeNotFound      = "not_found"
	OutcomeNoMatch       = "no_match"
	OutcomeFailed        = "failed"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("attendance")
)

type (
	Repository interface {
		// GetAttendance returns the record of studentID for day, or ErrNotFound.
		GetAttendance(ctx context.Context, studentID string, day civil.Date) (Attendance, error)
		// CreateAttendance inserts rec, or returns core.ErrConflict when (StudentID, Day) already has a record.
		CreateAttendance(ctx context.Context, rec Attendance) (Attendance, error)
		// UpsertAttendance inserts rec, or overwrites Status, Method, MarkedBy, Remarks, TimeIn, Date and UpdatedAt
		// of the existing (StudentID, Day) record, keeping its ID, CreatedAt and TimeOut.
		UpsertAttendance(ctx context.Context, rec Attendance) (Attendance, error)
		CountAttendance(ctx context.Context, filter Filter) (int, error)
		// QueryAttendance returns matching records, newest day first.
		QueryAttendance(ctx context.Context, filter Filter) ([]Attendance, error)
	}

	// Identifier resolves a face photo to the opaque reference it was registered under.
	Identifier interface {
		Identify(ctx context.Context, photo io.Reader, filename string) (ref string, matched bool, err error)
	}

	// Recorder observes marking outcomes.
	Recorder interface {
		ObserveMark(method, outcome string)
	}

	Service interface {
		Mark(ctx context.Context, m Mark) (MarkResult, error)
		MarkRFID(ctx context.Context, schoolID, rfidTagID string) (MarkResult, error)
		MarkFacial(ctx context.Context, schoolID string, photo io.Reader, filename string) (FacialResult, error)
		MarkMany(ctx context.Context, batch ManualBatch) ([]MarkResult, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Attendance, error)
		StudentStats(ctx context.Context, studentID string) (StudentStats, error)
		StudentProfile(ctx context.Context, studentID string) (StudentProfile, error)
	}

	Options struct {
		Calendar      *core.Calendar
		Identifier    Identifier
		Recorder      Recorder
		Mailer        core.EmailService
		NotifyAbsence bool
	}

	service struct {
		repo     Repository
		students student.Service
		opts     Options
	}
)

var _ Service = (*service)(nil)

type nopRecorder struct{}

func (nopRecorder) ObserveMark(string, string) {}

func NewService(repo Repository, students student.Service, opts Options) Service {
	if opts.Calendar == nil {
		opts.Calendar = core.NewCalendar(nil)
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &service{repo: repo, students: students, opts: opts}
}

func (svc *service) resolve(ctx context.Context, m Mark) (student.Student, error) {
	var std student.Student
	var err error
	if m.Method == MethodRFID {
		std, err = svc.students.GetByTag(ctx, m.StudentRef)
	} else {
		std, err = svc.students.GetByID(ctx, m.StudentRef)
	}
	if err != nil {
		return student.Student{}, err
	}
	if m.SchoolID != "" && std.SchoolID != m.SchoolID {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

// Mark records m for the calendar day containing m.Date.
// Automatic methods never overwrite an existing record of that day; manual marking does.
func (svc *service) Mark(ctx context.Context, m Mark) (MarkResult, error) {
	if !IsValidStatus(m.Status) {
		return MarkResult{}, core.NewArgumentError("status", fmt.Sprintf("unknown status %q", m.Status))
	}
	if !IsValidMethod(m.Method) {
		return MarkResult{}, core.NewArgumentError("method", fmt.Sprintf("unknown method %q", m.Method))
	}

	std, err := svc.resolve(ctx, m)
	if err != nil {
		if core.IsNotFound(err) {
			svc.opts.Recorder.ObserveMark(m.Method, OutcomeNotFound)
			return MarkResult{}, err
		}
		svc.opts.Recorder.ObserveMark(m.Method, OutcomeFailed)
		return MarkResult{}, errors.Wrap(err, "resolving student")
	}

	res, err := svc.mark(ctx, std, m)
	if err != nil {
		svc.opts.Recorder.ObserveMark(m.Method, OutcomeFailed)
		return MarkResult{}, err
	}
	return res, nil
}

func (svc *service) mark(ctx context.Context, std student.Student, m Mark) (MarkResult, error) {
	now := svc.opts.Calendar.Now()
	date := m.Date
	if date.IsZero() {
		date = now
	}

	rec := Attendance{
		StudentID: std.ID,
		SchoolID:  std.SchoolID,
		Day:       svc.opts.Calendar.DayOf(date),
		Date:      date.UTC(),
		Status:    m.Status,
		Method:    m.Method,
		MarkedBy:  m.MarkedBy,
		Remarks:   m.Remarks,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if m.Status == StatusPresent {
		timeIn := now.UTC()
		rec.TimeIn = &timeIn
	}

	if IsAutomatic(m.Method) {
		return svc.markOnce(ctx, std, rec)
	}

	rec, err := svc.repo.UpsertAttendance(ctx, rec)
	if err != nil {
		return MarkResult{}, errors.Wrap(err, "upserting attendance")
	}
	svc.opts.Recorder.ObserveMark(m.Method, OutcomeUpdated)
	if rec.Status == StatusAbsent {
		svc.notifyAbsence(std, rec)
	}
	return MarkResult{Record: rec, Student: std}, nil
}

// markOnce creates rec unless its student already has a record for that day.
// A concurrent insert losing on the store's uniqueness constraint reads back the winner.
func (svc *service) markOnce(ctx context.Context, std student.Student, rec Attendance) (MarkResult, error) {
	existing, err := svc.repo.GetAttendance(ctx, rec.StudentID, rec.Day)
	if err == nil {
		svc.opts.Recorder.ObserveMark(rec.Method, OutcomeAlreadyMarked)
		return MarkResult{Record: existing, Student: std, AlreadyMarked: true}, nil
	} else if !core.IsNotFound(err) {
		return MarkResult{}, errors.Wrap(err, "finding attendance")
	}

	created, err := svc.repo.CreateAttendance(ctx, rec)
	if err != nil {
		if errors.Cause(err) != core.ErrConflict {
			return MarkResult{}, errors.Wrap(err, "creating attendance")
		}
		if existing, err = svc.repo.GetAttendance(ctx, rec.StudentID, rec.Day); err != nil {
			return MarkResult{}, errors.Wrap(err, "finding conflicting attendance")
		}
		svc.opts.Recorder.ObserveMark(rec.Method, OutcomeAlreadyMarked)
		return MarkResult{Record: existing, Student: std, AlreadyMarked: true}, nil
	}
	svc.opts.Recorder.ObserveMark(rec.Method, OutcomeCreated)
	return MarkResult{Record: created, Student: std}, nil
}

// MarkRFID marks the student tagged rfidTagID present. A non-empty schoolID restricts the lookup to that school.
func (svc *service) MarkRFID(ctx context.Context, schoolID, rfidTagID string) (MarkResult, error) {
	return svc.Mark(ctx, Mark{SchoolID: schoolID, StudentRef: rfidTagID, Status: StatusPresent, Method: MethodRFID})
}

// MarkFacial identifies the photo and marks the matching student of schoolID present.
// An unrecognised face, or one registered for a student of another school, is not an error.
func (svc *service) MarkFacial(ctx context.Context, schoolID string, photo io.Reader, filename string) (FacialResult, error) {
	if svc.opts.Identifier == nil {
		return FacialResult{}, core.ErrUpstreamUnavailable
	}

	ref, matched, err := svc.opts.Identifier.Identify(ctx, photo, filename)
	if err != nil {
		svc.opts.Recorder.ObserveMark(MethodFacial, OutcomeFailed)
		return FacialResult{}, errors.Wrap(err, "identifying face")
	}
	if !matched || ref == "" {
		svc.opts.Recorder.ObserveMark(MethodFacial, OutcomeNoMatch)
		return FacialResult{Matched: false}, nil
	}

	std, err := svc.students.GetByRollNumber(ctx, schoolID, ref)
	if err != nil {
		if core.IsNotFound(err) {
			svc.opts.Recorder.ObserveMark(MethodFacial, OutcomeNoMatch)
			return FacialResult{Matched: false}, nil
		}
		return FacialResult{}, errors.Wrap(err, "finding student by roll number")
	}

	res, err := svc.mark(ctx, std, Mark{StudentRef: std.ID, Status: StatusPresent, Method: MethodFacial})
	if err != nil {
		svc.opts.Recorder.ObserveMark(MethodFacial, OutcomeFailed)
		return FacialResult{}, err
	}
	return FacialResult{Matched: true, Result: &res}, nil
}

// MarkMany applies manual marks for every entry of batch.
// All students are resolved first: an unknown student, or one of another school, fails the batch before anything is written.
func (svc *service) MarkMany(ctx context.Context, batch ManualBatch) ([]MarkResult, error) {
	ids := make([]string, 0, len(batch.Entries))
	for id, status := range batch.Entries {
		if !IsValidStatus(status) {
			return nil, core.NewArgumentError("status", fmt.Sprintf("unknown status %q", status))
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	students := make([]student.Student, 0, len(ids))
	for _, id := range ids {
		std, err := svc.students.GetByID(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				svc.opts.Recorder.ObserveMark(MethodManual, OutcomeNotFound)
				return nil, err
			}
			return nil, errors.Wrap(err, "finding student")
		}
		if std.SchoolID != batch.SchoolID {
			svc.opts.Recorder.ObserveMark(MethodManual, OutcomeNotFound)
			return nil, student.ErrNotFound
		}
		students = append(students, std)
	}

	results := make([]MarkResult, 0, len(students))
	for _, std := range students {
		res, err := svc.mark(ctx, std, Mark{
			StudentRef: std.ID,
			Date:       batch.Date,
			Status:     batch.Entries[std.ID],
			Method:     MethodManual,
			MarkedBy:   batch.MarkedBy,
		})
		if err != nil {
			svc.opts.Recorder.ObserveMark(MethodManual, OutcomeFailed)
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func parseDay(arg, value string) (civil.Date, error) {
	if value == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, core.NewArgumentError(arg, "must be a date formatted as YYYY-MM-DD")
	}
	return d, nil
}

// Query lists the records of a school. Without any day bounds, only today's records are listed.
func (svc *service) Query(ctx context.Context, qf *QueryFilter) ([]Attendance, error) {
	if qf == nil {
		qf = new(QueryFilter)
	}
	filter := Filter{SchoolID: qf.SchoolID, StudentID: qf.StudentID}

	if qf.Status != "" {
		if !IsValidStatus(qf.Status) {
			return nil, core.NewArgumentError("status", fmt.Sprintf("unknown status %q", qf.Status))
		}
		filter.Status = qf.Status
	}

	var err error
	if qf.Day != "" {
		if filter.From, err = parseDay("day", qf.Day); err != nil {
			return nil, err
		}
		filter.To = filter.From
	} else if qf.From != "" || qf.To != "" {
		if filter.From, err = parseDay("from", qf.From); err != nil {
			return nil, err
		}
		if filter.To, err = parseDay("to", qf.To); err != nil {
			return nil, err
		}
		if qf.From != "" && qf.To != "" && filter.To.Before(filter.From) {
			return nil, core.NewArgumentError("to", "must not be before from")
		}
	} else {
		filter.From = svc.opts.Calendar.Today()
		filter.To = filter.From
	}

	records, err := svc.repo.QueryAttendance(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

// StudentStats counts the student's present and marked days over the last 30 calendar days, today included.
func (svc *service) StudentStats(ctx context.Context, studentID string) (StudentStats, error) {
	window := svc.opts.Calendar.Window(statsWindowDays)
	filter := Filter{StudentID: studentID, From: window[0], To: window[len(window)-1]}

	marked, err := svc.repo.CountAttendance(ctx, filter)
	if err != nil {
		return StudentStats{}, errors.Wrap(err, "counting marked days")
	}
	filter.Status = StatusPresent
	present, err := svc.repo.CountAttendance(ctx, filter)
	if err != nil {
		return StudentStats{}, errors.Wrap(err, "counting present days")
	}
	return StudentStats{
		PresentDays: present,
		MarkedDays:  marked,
		Percentage:  core.Percent(present, marked),
	}, nil
}

func (svc *service) StudentProfile(ctx context.Context, studentID string) (StudentProfile, error) {
	std, err := svc.students.GetByID(ctx, studentID)
	if err != nil {
		return StudentProfile{}, err
	}
	stats, err := svc.StudentStats(ctx, std.ID)
	if err != nil {
		return StudentProfile{}, err
	}
	history, err := svc.repo.QueryAttendance(ctx, Filter{StudentID: std.ID, Limit: historyLimit})
	if err != nil {
		return StudentProfile{}, errors.Wrap(err, "querying attendance history")
	}
	return StudentProfile{Student: std, Stats: stats, History: history}, nil
}

func (svc *service) notifyAbsence(std student.Student, rec Attendance) {
	if !svc.opts.NotifyAbsence || svc.opts.Mailer == nil || std.ParentEmail == "" {
		return
	}
	svc.opts.Mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: "Parent of " + std.Name, Address: std.ParentEmail}},
		Subject:      fmt.Sprintf("%s was absent on %s", std.Name, rec.Day),
		TemplateName: absenceNoticeTpl,
		TemplateData: absenceNotice{
			StudentName: std.Name,
			RollNumber:  std.RollNumber,
			Class:       std.Class,
			Section:     std.Section,
			Day:         rec.Day.String(),
		},
	})
}
