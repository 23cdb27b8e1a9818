package report

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
)

const (
	DefaultWindowDays    = 7
	DefaultMaxWindowDays = 366
	// HighRiskListSize caps the high-risk students listed on a school's detail and dashboard.
	HighRiskListSize = 5

	maxParallelSummaries = 8
)

type (
	StudentReader interface {
		CountStudents(ctx context.Context, filter student.CountFilter) (int, error)
		QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error)
	}

	AttendanceReader interface {
		CountAttendance(ctx context.Context, filter attendance.Filter) (int, error)
		QueryAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Attendance, error)
	}

	Service interface {
		DailyCounts(ctx context.Context, schoolID string, windowDays int) ([]DailyCount, error)
		SchoolTrend(ctx context.Context, schoolID string, windowDays int) ([]TrendPoint, error)
		SchoolSummary(ctx context.Context, schoolID string) (SchoolSummary, error)
		HighRiskStudents(ctx context.Context, schoolID string, limit int) ([]student.Student, error)
		SchoolDetail(ctx context.Context, schoolID string) (SchoolDetail, error)
		Dashboard(ctx context.Context, schoolID string) (Dashboard, error)
		DistrictSummary(ctx context.Context, schools []school.School) (map[string]DistrictSummary, error)
		Districts(ctx context.Context, filter *school.QueryFilter) (DistrictReport, error)
		Overview(ctx context.Context) (Overview, error)
		RefreshSchoolStats(ctx context.Context) ([]school.School, error)
	}

	Options struct {
		Calendar *core.Calendar
		// DistrictNormalization is one of core.NormalizeNone (default), core.NormalizeTrim or core.NormalizeFold.
		DistrictNormalization string
		// MaxWindowDays bounds the windows of DailyCounts and SchoolTrend. Defaults to DefaultMaxWindowDays.
		MaxWindowDays int
	}

	service struct {
		students StudentReader
		records  AttendanceReader
		schools  school.Service
		opts     Options
	}
)

var _ Service = (*service)(nil)

func NewService(students StudentReader, records AttendanceReader, schools school.Service, opts Options) Service {
	if opts.Calendar == nil {
		opts.Calendar = core.NewCalendar(nil)
	}
	if opts.DistrictNormalization == "" {
		opts.DistrictNormalization = core.NormalizeNone
	}
	if opts.MaxWindowDays <= 0 {
		opts.MaxWindowDays = DefaultMaxWindowDays
	}
	return &service{students: students, records: records, schools: schools, opts: opts}
}

// ParseWindow parses a window size given as text. An empty value gives def.
// The upper bound is checked by the service.
func ParseWindow(value string, def int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, core.NewArgumentError("days", "must be a positive integer")
	}
	return n, nil
}

func (svc *service) checkWindow(windowDays int) error {
	if windowDays <= 0 {
		return core.NewArgumentError("days", "must be a positive integer")
	}
	if windowDays > svc.opts.MaxWindowDays {
		return core.NewArgumentError("days", "must not exceed "+strconv.Itoa(svc.opts.MaxWindowDays))
	}
	return nil
}

// DailyCounts returns exactly windowDays entries, oldest first, ending today.
// Days without any mark are kept with zero counts.
func (svc *service) DailyCounts(ctx context.Context, schoolID string, windowDays int) ([]DailyCount, error) {
	if err := svc.checkWindow(windowDays); err != nil {
		return nil, err
	}
	if _, err := svc.schools.GetByID(ctx, schoolID); err != nil {
		return nil, err
	}
	return svc.dailyCounts(ctx, schoolID, windowDays)
}

func (svc *service) dailyCounts(ctx context.Context, schoolID string, windowDays int) ([]DailyCount, error) {
	days := svc.opts.Calendar.Window(windowDays)
	counts := make([]DailyCount, 0, len(days))
	for _, day := range days {
		filter := attendance.Filter{SchoolID: schoolID, From: day, To: day, Status: attendance.StatusPresent}
		present, err := svc.records.CountAttendance(ctx, filter)
		if err != nil {
			return nil, errors.Wrapf(err, "counting present on %s", day)
		}
		filter.Status = attendance.StatusAbsent
		absent, err := svc.records.CountAttendance(ctx, filter)
		if err != nil {
			return nil, errors.Wrapf(err, "counting absent on %s", day)
		}
		counts = append(counts, DailyCount{Day: day, Present: present, Absent: absent})
	}
	return counts, nil
}

func (svc *service) SchoolTrend(ctx context.Context, schoolID string, windowDays int) ([]TrendPoint, error) {
	counts, err := svc.DailyCounts(ctx, schoolID, windowDays)
	if err != nil {
		return nil, err
	}
	total, err := svc.students.CountStudents(ctx, student.CountFilter{SchoolID: schoolID})
	if err != nil {
		return nil, errors.Wrap(err, "counting students")
	}

	trend := make([]TrendPoint, 0, len(counts))
	for _, c := range counts {
		trend = append(trend, TrendPoint{DailyCount: c, Percentage: core.Percent(c.Present, total)})
	}
	return trend, nil
}

func (svc *service) SchoolSummary(ctx context.Context, schoolID string) (SchoolSummary, error) {
	if _, err := svc.schools.GetByID(ctx, schoolID); err != nil {
		return SchoolSummary{}, err
	}
	return svc.schoolSummary(ctx, schoolID)
}

// schoolSummary reads only counts scoped to schoolID, so it is safe to run for many schools at once.
func (svc *service) schoolSummary(ctx context.Context, schoolID string) (SchoolSummary, error) {
	total, err := svc.students.CountStudents(ctx, student.CountFilter{SchoolID: schoolID})
	if err != nil {
		return SchoolSummary{}, errors.Wrap(err, "counting students")
	}

	today := svc.opts.Calendar.Today()
	present, err := svc.records.CountAttendance(ctx, attendance.Filter{
		SchoolID: schoolID,
		From:     today,
		To:       today,
		Status:   attendance.StatusPresent,
	})
	if err != nil {
		return SchoolSummary{}, errors.Wrap(err, "counting present students")
	}

	threshold := student.HighRiskThreshold
	highRisk, err := svc.students.CountStudents(ctx, student.CountFilter{SchoolID: schoolID, RiskAbove: &threshold})
	if err != nil {
		return SchoolSummary{}, errors.Wrap(err, "counting high-risk students")
	}

	return SchoolSummary{
		TotalStudents:     total,
		AttendanceRatePct: core.Percent(present, total),
		DropoutRiskPct:    core.Percent(highRisk, total),
		HighRiskCount:     highRisk,
	}, nil
}

// HighRiskStudents lists up to limit students of schoolID whose dropout risk is above
// student.HighRiskThreshold, riskiest first.
func (svc *service) HighRiskStudents(ctx context.Context, schoolID string, limit int) ([]student.Student, error) {
	if limit <= 0 {
		limit = HighRiskListSize
	}
	students, err := svc.students.QueryStudents(ctx, &student.QueryFilter{SchoolID: schoolID}, []core.DBOrdering{
		{Field: "dropout_risk"},
		{Field: "roll_number", Ascending: true},
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	highRisk := make([]student.Student, 0, limit)
	for _, std := range students {
		if !std.IsHighRisk() || len(highRisk) == limit {
			break
		}
		highRisk = append(highRisk, std)
	}
	return highRisk, nil
}

// SchoolDetail is the school's summary with its riskiest students.
func (svc *service) SchoolDetail(ctx context.Context, schoolID string) (SchoolDetail, error) {
	sch, err := svc.schools.GetByID(ctx, schoolID)
	if err != nil {
		return SchoolDetail{}, err
	}
	return svc.schoolDetail(ctx, sch)
}

func (svc *service) schoolDetail(ctx context.Context, sch school.School) (SchoolDetail, error) {
	summary, err := svc.schoolSummary(ctx, sch.ID)
	if err != nil {
		return SchoolDetail{}, err
	}
	highRisk, err := svc.HighRiskStudents(ctx, sch.ID, HighRiskListSize)
	if err != nil {
		return SchoolDetail{}, err
	}
	return SchoolDetail{
		SchoolReport:     SchoolReport{School: sch, Summary: summary},
		HighRiskStudents: highRisk,
	}, nil
}

// Dashboard is a teacher's view of their school for today.
func (svc *service) Dashboard(ctx context.Context, schoolID string) (Dashboard, error) {
	sch, err := svc.schools.GetByID(ctx, schoolID)
	if err != nil {
		return Dashboard{}, err
	}
	detail, err := svc.schoolDetail(ctx, sch)
	if err != nil {
		return Dashboard{}, err
	}

	today := svc.opts.Calendar.Today()
	records, err := svc.records.QueryAttendance(ctx, attendance.Filter{SchoolID: schoolID, From: today, To: today})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying today's attendance")
	}
	if records == nil {
		records = []attendance.Attendance{}
	}

	counts := DailyCount{Day: today}
	for _, rec := range records {
		switch rec.Status {
		case attendance.StatusPresent:
			counts.Present++
		case attendance.StatusAbsent:
			counts.Absent++
		}
	}
	return Dashboard{SchoolDetail: detail, Today: counts, Records: records}, nil
}

// summarize computes the summaries of schools concurrently. Any failure fails the whole call.
func (svc *service) summarize(ctx context.Context, schools []school.School) ([]SchoolSummary, error) {
	summaries := make([]SchoolSummary, len(schools))
	sem := semaphore.NewWeighted(maxParallelSummaries)
	g, gctx := errgroup.WithContext(ctx)

	for i := range schools {
		i := i
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			sum, err := svc.schoolSummary(gctx, schools[i].ID)
			if err != nil {
				return errors.Wrapf(err, "summarizing school %s", schools[i].ID)
			}
			summaries[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (svc *service) DistrictSummary(ctx context.Context, schools []school.School) (map[string]DistrictSummary, error) {
	summaries, err := svc.summarize(ctx, schools)
	if err != nil {
		return nil, err
	}

	type acc struct {
		DistrictSummary
		attendance []float64
		dropout    []float64
	}
	groups := make(map[string]*acc)
	for i, sch := range schools {
		key := districtKey(svc.opts.DistrictNormalization, sch.District)
		g, ok := groups[key]
		if !ok {
			g = new(acc)
			groups[key] = g
		}
		g.SchoolCount++
		g.TotalStudents += summaries[i].TotalStudents
		g.attendance = append(g.attendance, summaries[i].AttendanceRatePct)
		g.dropout = append(g.dropout, summaries[i].DropoutRiskPct)
	}

	districts := make(map[string]DistrictSummary, len(groups))
	for key, g := range groups {
		g.AvgAttendancePct = core.Mean(g.attendance)
		g.AvgDropoutRiskPct = core.Mean(g.dropout)
		districts[key] = g.DistrictSummary
	}
	return districts, nil
}

func (svc *service) Districts(ctx context.Context, filter *school.QueryFilter) (DistrictReport, error) {
	schools, err := svc.schools.Query(ctx, filter, nil)
	if err != nil {
		return DistrictReport{}, errors.Wrap(err, "querying schools")
	}
	districts, err := svc.DistrictSummary(ctx, schools)
	if err != nil {
		return DistrictReport{}, err
	}

	keys := make([]string, 0, len(districts))
	for key := range districts {
		keys = append(keys, key)
	}
	return DistrictReport{
		Normalization:    svc.opts.DistrictNormalization,
		Districts:        districts,
		SimilarDistricts: similarDistricts(keys),
	}, nil
}

func (svc *service) Overview(ctx context.Context) (Overview, error) {
	schools, err := svc.schools.Query(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying schools")
	}
	summaries, err := svc.summarize(ctx, schools)
	if err != nil {
		return Overview{}, err
	}

	ov := Overview{TotalSchools: len(schools), Schools: make([]SchoolReport, 0, len(schools))}
	attendanceRates := make([]float64, 0, len(schools))
	dropoutRates := make([]float64, 0, len(schools))
	for i, sch := range schools {
		ov.TotalStudents += summaries[i].TotalStudents
		attendanceRates = append(attendanceRates, summaries[i].AttendanceRatePct)
		dropoutRates = append(dropoutRates, summaries[i].DropoutRiskPct)
		ov.Schools = append(ov.Schools, SchoolReport{School: sch, Summary: summaries[i]})
	}
	ov.AvgAttendancePct = core.Mean(attendanceRates)
	ov.AvgDropoutRiskPct = core.Mean(dropoutRates)
	return ov, nil
}

// RefreshSchoolStats recomputes every school's summary and writes it to the school's cached fields.
func (svc *service) RefreshSchoolStats(ctx context.Context) ([]school.School, error) {
	schools, err := svc.schools.Query(ctx, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	summaries, err := svc.summarize(ctx, schools)
	if err != nil {
		return nil, err
	}

	now := svc.opts.Calendar.Now()
	updated := make([]school.School, 0, len(schools))
	for i, sch := range schools {
		sch, err = svc.schools.UpdateStats(ctx, sch.ID, school.Stats{
			TotalStudents:     summaries[i].TotalStudents,
			AverageAttendance: summaries[i].AttendanceRatePct,
			DropoutRisk:       summaries[i].DropoutRiskPct,
			UpdatedAt:         now,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "updating stats of school %s", schools[i].ID)
		}
		updated = append(updated, sch)
	}
	return updated, nil
}
