package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/student"
)

const studentColumns = `id, name, roll_number, rfid_tag_id, class, section, school_id, parent_contact, parent_email,
	face_ref, dropout_risk, risk_factors, total_days, present_days, attendance_percentage, created_at, updated_at`

type studentRow struct {
	ID                   string         `db:"id"`
	Name                 string         `db:"name"`
	RollNumber           string         `db:"roll_number"`
	RFIDTagID            string         `db:"rfid_tag_id"`
	Class                string         `db:"class"`
	Section              string         `db:"section"`
	SchoolID             string         `db:"school_id"`
	ParentContact        null.String    `db:"parent_contact"`
	ParentEmail          null.String    `db:"parent_email"`
	FaceRef              null.String    `db:"face_ref"`
	DropoutRisk          float64        `db:"dropout_risk"`
	RiskFactors          pq.StringArray `db:"risk_factors"`
	TotalDays            int            `db:"total_days"`
	PresentDays          int            `db:"present_days"`
	AttendancePercentage float64        `db:"attendance_percentage"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) toRow(std student.Student) studentRow {
	factors := std.RiskFactors
	if factors == nil {
		factors = []string{}
	}
	return studentRow{
		ID:                   std.ID,
		Name:                 std.Name,
		RollNumber:           std.RollNumber,
		RFIDTagID:            std.RFIDTagID,
		Class:                std.Class,
		Section:              std.Section,
		SchoolID:             std.SchoolID,
		ParentContact:        null.NewString(std.ParentContact, std.ParentContact != ""),
		ParentEmail:          null.NewString(std.ParentEmail, std.ParentEmail != ""),
		FaceRef:              null.NewString(std.FaceRef, std.FaceRef != ""),
		DropoutRisk:          std.DropoutRisk,
		RiskFactors:          factors,
		TotalDays:            std.TotalDays,
		PresentDays:          std.PresentDays,
		AttendancePercentage: std.AttendancePercentage,
		CreatedAt:            std.CreatedAt.UTC(),
		UpdatedAt:            std.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) fromRow(row studentRow) student.Student {
	factors := []string(row.RiskFactors)
	if factors == nil {
		factors = []string{}
	}
	return student.Student{
		ID:                   row.ID,
		Name:                 row.Name,
		RollNumber:           row.RollNumber,
		RFIDTagID:            row.RFIDTagID,
		Class:                row.Class,
		Section:              row.Section,
		SchoolID:             row.SchoolID,
		ParentContact:        row.ParentContact.String,
		ParentEmail:          row.ParentEmail.String,
		FaceRef:              row.FaceRef.String,
		DropoutRisk:          row.DropoutRisk,
		RiskFactors:          factors,
		TotalDays:            row.TotalDays,
		PresentDays:          row.PresentDays,
		AttendancePercentage: row.AttendancePercentage,
		CreatedAt:            row.CreatedAt.UTC(),
		UpdatedAt:            row.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) CheckTagUniqueness(ctx context.Context, rfidTagID string) error {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM student WHERE rfid_tag_id = $1)`
	if err := repo.db.GetContext(ctx, &exists, q, rfidTagID); err != nil {
		return errors.Wrap(err, "checking student tag uniqueness")
	}
	if exists {
		return student.ErrTagExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	if std.RiskFactors == nil {
		std.RiskFactors = []string{}
	}
	q := `INSERT INTO student (` + studentColumns + `) VALUES (:id, :name, :roll_number, :rfid_tag_id, :class, :section,
		:school_id, :parent_contact, :parent_email, :face_ref, :dropout_risk, :risk_factors, :total_days, :present_days,
		:attendance_percentage, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toRow(std)); err != nil {
		return student.Student{}, trapUniqueErr(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var w where
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return student.Student{}, student.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.RFIDTagID != "":
		w.add("rfid_tag_id = ?", filter.RFIDTagID)
	case filter.SchoolID != "" && filter.RollNumber != "":
		if !isUUID(filter.SchoolID) {
			return student.Student{}, student.ErrNotFound
		}
		w.add("school_id = ?", filter.SchoolID)
		w.add("roll_number = ?", filter.RollNumber)
	default:
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	q := `SELECT ` + studentColumns + ` FROM student` + w.String() + ` ORDER BY created_at LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), w.args...); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return repo.fromRow(row), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var w where
	if filter != nil {
		if filter.SchoolID != "" {
			if !isUUID(filter.SchoolID) {
				return []student.Student{}, nil
			}
			w.add("school_id = ?", filter.SchoolID)
		}
		if filter.Class != "" {
			w.add("class = ?", filter.Class)
		}
		// students with Name, RollNumber or RFIDTagID matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(name ILIKE ? OR roll_number ILIKE ? OR rfid_tag_id ILIKE ?)", val, val, val)
		}
	}

	q := `SELECT ` + studentColumns + ` FROM student` + w.String() +
		orderBy(ordering, student.OrderingFields, core.DBOrdering{Field: "created_at", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.fromRow(row))
	}
	return students, nil
}

func (repo studentRepository) CountStudents(ctx context.Context, filter student.CountFilter) (int, error) {
	var w where
	if filter.SchoolID != "" {
		if !isUUID(filter.SchoolID) {
			return 0, nil
		}
		w.add("school_id = ?", filter.SchoolID)
	}
	if filter.RiskAbove != nil {
		w.add("dropout_risk > ?", *filter.RiskAbove)
	}

	var n int
	q := `SELECT COUNT(*) FROM student` + w.String()
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	if !isUUID(std.ID) {
		return student.Student{}, student.ErrNotFound
	}
	row := repo.toRow(std)
	var updated studentRow
	q := `UPDATE student SET dropout_risk = $2, risk_factors = $3, face_ref = $4, updated_at = $5
		WHERE id = $1 RETURNING ` + studentColumns
	if err := repo.db.GetContext(ctx, &updated, q, row.ID, row.DropoutRisk, row.RiskFactors, row.FaceRef, row.UpdatedAt); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "updating student")
	}
	return repo.fromRow(updated), nil
}
