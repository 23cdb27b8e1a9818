package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/student"
	"github.com/exoshivam/smart-attendance/core/testutil"
)

func Test_createUserStmt(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
		want     string
	}{
		{
			name:     "plain",
			user:     "attendance",
			password: "secret",
			want:     `CREATE USER "attendance" CREATEDB ENCRYPTED PASSWORD 'secret'`,
		},
		{
			name:     "quotes are escaped",
			user:     `app"; DROP ROLE postgres; --`,
			password: `it's`,
			want:     `CREATE USER "app""; DROP ROLE postgres; --" CREATEDB ENCRYPTED PASSWORD 'it''s'`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, createUserStmt(tc.user, tc.password))
		})
	}
}

func Test_createDBStmt(t *testing.T) {
	assert.Equal(t, `CREATE DATABASE "attendance"`, createDBStmt("attendance"))
	assert.Equal(t, `CREATE DATABASE "Mixed-Case"`, createDBStmt("Mixed-Case"))
	assert.Equal(t, `CREATE DATABASE "x"";DROP"`, createDBStmt(`x";DROP`))
}

func Test_dsn(t *testing.T) {
	conf := core.DatabaseConfig{
		Host:          "db",
		Port:          "5432",
		User:          "app",
		Password:      "p@ss",
		AdminUser:     "postgres",
		AdminPassword: "root",
		DisableTLS:    true,
	}

	assert.Equal(t, "postgres://app:p%40ss@db:5432/attendance?sslmode=disable&timezone=utc", dsn("attendance", false, conf))
	assert.Equal(t, "postgres://postgres:root@db:5432/postgres?sslmode=disable&timezone=utc", dsn("postgres", true, conf))

	conf.DisableTLS = false
	conf.AdminUser = ""
	assert.Equal(t, "postgres://app:p%40ss@db:5432/postgres?sslmode=require&timezone=utc", dsn("postgres", true, conf))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		conf := testutil.NewConfig()
		conf.Database.Engine = EngineMemory

		store, err := OpenStore(ctx, conf)
		require.NoError(t, err)
		sch := testutil.CreateSchool(t, store.Schools, "School A", "sch-a", "North")
		got, err := store.Schools.GetSchool(ctx, sch.ID)
		require.NoError(t, err)
		assert.Equal(t, "sch-a", got.Code)
		assert.NoError(t, store.Close())
	})

	t.Run("bolt survives reopen", func(t *testing.T) {
		conf := testutil.NewConfig()
		conf.Database.Engine = EngineBolt
		conf.Database.BoltPath = filepath.Join(t.TempDir(), "data", "attendance.db")

		store, err := OpenStore(ctx, conf)
		require.NoError(t, err)
		sch := testutil.CreateSchool(t, store.Schools, "School A", "sch-a", "North")
		testutil.CreateStudent(t, store.Students, sch.ID, "Asha", "A1", "TAG1", 0.2)
		require.NoError(t, store.Close())

		store, err = OpenStore(ctx, conf)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		got, err := store.Schools.GetSchool(ctx, sch.ID)
		require.NoError(t, err)
		assert.Equal(t, "School A", got.Name)
		n, err := store.Students.CountStudents(ctx, student.CountFilter{SchoolID: sch.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("unknown engine", func(t *testing.T) {
		conf := testutil.NewConfig()
		conf.Database.Engine = "mongo"

		_, err := OpenStore(ctx, conf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown database engine "mongo"`)
	})
}
