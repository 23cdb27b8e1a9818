package database

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
	boltrepos "github.com/exoshivam/smart-attendance/storage/database/bolt"
	inmemdb "github.com/exoshivam/smart-attendance/storage/database/inmem"
	sqlxrepos "github.com/exoshivam/smart-attendance/storage/database/sqlx"
)

// Database engines
const (
	EnginePostgres = "postgres"
	EngineBolt     = "bolt"
	EngineMemory   = "memory"
)

// Store holds the repositories of one storage engine and the handle that releases it.
type Store struct {
	Schools    school.Repository
	Students   student.Repository
	Attendance attendance.Repository
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the engine named by conf.Database.Engine.
// Postgres is created if missing and migrated before use.
func OpenStore(ctx context.Context, conf *core.Config) (Store, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		if err := CreateIfNotExist(ctx, conf); err != nil {
			return Store{}, errors.Wrap(err, "setting up database")
		}
		db, err := Open(conf)
		if err != nil {
			return Store{}, errors.Wrap(err, "opening database")
		}
		if err = Migrate(db); err != nil {
			_ = db.Close()
			return Store{}, err
		}
		xdb := sqlxrepos.NewDB(db)
		return Store{
			Schools:    sqlxrepos.NewSchoolRepository(xdb),
			Students:   sqlxrepos.NewStudentRepository(xdb),
			Attendance: sqlxrepos.NewAttendanceRepository(xdb),
			Closer:     db,
		}, nil

	case EngineBolt:
		db, err := boltrepos.Open(conf.Database.BoltPath)
		if err != nil {
			return Store{}, errors.Wrap(err, "opening bolt database")
		}
		return Store{
			Schools:    boltrepos.NewSchoolRepository(db),
			Students:   boltrepos.NewStudentRepository(db),
			Attendance: boltrepos.NewAttendanceRepository(db),
			Closer:     db,
		}, nil

	case EngineMemory:
		db := inmemdb.NewDB()
		return Store{
			Schools:    inmemdb.NewSchoolRepository(db),
			Students:   inmemdb.NewStudentRepository(db),
			Attendance: inmemdb.NewAttendanceRepository(db),
			Closer:     nopCloser{},
		}, nil
	}
	return Store{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}
