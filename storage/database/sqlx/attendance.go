package sqlxrepos

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/exoshivam/smart-attendance/core/attendance"
)

const attendanceColumns = `id, student_id, school_id, day, date, status, method, time_in, time_out, marked_by, remarks,
	created_at, updated_at`

type attendanceRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	SchoolID  string      `db:"school_id"`
	Day       time.Time   `db:"day"`
	Date      time.Time   `db:"date"`
	Status    string      `db:"status"`
	Method    string      `db:"method"`
	TimeIn    null.Time   `db:"time_in"`
	TimeOut   null.Time   `db:"time_out"`
	MarkedBy  null.String `db:"marked_by"`
	Remarks   null.String `db:"remarks"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// dayParam renders a calendar day as a DATE parameter.
func dayParam(day civil.Date) string {
	return day.String()
}

func (repo attendanceRepository) toRow(rec attendance.Attendance) attendanceRow {
	return attendanceRow{
		ID:        rec.ID,
		StudentID: rec.StudentID,
		SchoolID:  rec.SchoolID,
		Day:       rec.Day.In(time.UTC),
		Date:      rec.Date.UTC(),
		Status:    rec.Status,
		Method:    rec.Method,
		TimeIn:    null.TimeFromPtr(rec.TimeIn),
		TimeOut:   null.TimeFromPtr(rec.TimeOut),
		MarkedBy:  null.NewString(rec.MarkedBy, rec.MarkedBy != ""),
		Remarks:   null.NewString(rec.Remarks, rec.Remarks != ""),
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

func (repo attendanceRepository) fromRow(row attendanceRow) attendance.Attendance {
	return attendance.Attendance{
		ID:        row.ID,
		StudentID: row.StudentID,
		SchoolID:  row.SchoolID,
		Day:       civil.DateOf(row.Day),
		Date:      row.Date.UTC(),
		Status:    row.Status,
		Method:    row.Method,
		TimeIn:    utcPtr(row.TimeIn),
		TimeOut:   utcPtr(row.TimeOut),
		MarkedBy:  row.MarkedBy.String,
		Remarks:   row.Remarks.String,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) where(filter attendance.Filter) (where, bool) {
	var w where
	if filter.SchoolID != "" {
		if !isUUID(filter.SchoolID) {
			return w, false
		}
		w.add("school_id = ?", filter.SchoolID)
	}
	if filter.StudentID != "" {
		if !isUUID(filter.StudentID) {
			return w, false
		}
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.From != (civil.Date{}) {
		w.add("day >= ?::date", dayParam(filter.From))
	}
	if filter.To != (civil.Date{}) {
		w.add("day <= ?::date", dayParam(filter.To))
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	return w, true
}

func (repo attendanceRepository) GetAttendance(ctx context.Context, studentID string, day civil.Date) (attendance.Attendance, error) {
	if !isUUID(studentID) {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	var row attendanceRow
	q := `SELECT ` + attendanceColumns + ` FROM attendance WHERE student_id = $1 AND day = $2::date`
	if err := repo.db.GetContext(ctx, &row, q, studentID, dayParam(day)); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance")
	}
	return repo.fromRow(row), nil
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, rec attendance.Attendance) (attendance.Attendance, error) {
	rec.ID = uuid.New().String()
	q := `INSERT INTO attendance (` + attendanceColumns + `) VALUES (:id, :student_id, :school_id, :day, :date, :status,
		:method, :time_in, :time_out, :marked_by, :remarks, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toRow(rec)); err != nil {
		return attendance.Attendance{}, trapUniqueErr(err, "inserting attendance")
	}
	return rec, nil
}

func (repo attendanceRepository) UpsertAttendance(ctx context.Context, rec attendance.Attendance) (attendance.Attendance, error) {
	rec.ID = uuid.New().String()
	q := `INSERT INTO attendance (` + attendanceColumns + `) VALUES (:id, :student_id, :school_id, :day, :date, :status,
		:method, :time_in, :time_out, :marked_by, :remarks, :created_at, :updated_at)
		ON CONFLICT ON CONSTRAINT attendance_student_day_key DO UPDATE SET
			date = EXCLUDED.date,
			status = EXCLUDED.status,
			method = EXCLUDED.method,
			marked_by = EXCLUDED.marked_by,
			remarks = EXCLUDED.remarks,
			time_in = EXCLUDED.time_in,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + attendanceColumns

	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "preparing attendance upsert")
	}
	defer func() { _ = stmt.Close() }()

	var row attendanceRow
	if err = stmt.GetContext(ctx, &row, repo.toRow(rec)); err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return repo.fromRow(row), nil
}

func (repo attendanceRepository) CountAttendance(ctx context.Context, filter attendance.Filter) (int, error) {
	w, ok := repo.where(filter)
	if !ok {
		return 0, nil
	}
	var n int
	q := `SELECT COUNT(*) FROM attendance` + w.String()
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting attendance")
	}
	return n, nil
}

func (repo attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	w, ok := repo.where(filter)
	if !ok {
		return []attendance.Attendance{}, nil
	}
	q := `SELECT ` + attendanceColumns + ` FROM attendance` + w.String() + ` ORDER BY day DESC, created_at DESC, id DESC`
	args := w.args
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.fromRow(row))
	}
	return records, nil
}
