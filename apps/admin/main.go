package main

import (
	"database/sql"
	"io"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/dig"

	dig_container "github.com/exoshivam/smart-attendance/apps/api/di/dig"
	"github.com/exoshivam/smart-attendance/core"
	"github.com/exoshivam/smart-attendance/core/report"
	"github.com/exoshivam/smart-attendance/core/school"
	"github.com/exoshivam/smart-attendance/core/student"
	"github.com/exoshivam/smart-attendance/storage/database"
)

var logger *log.Logger

type services struct {
	dig.In
	Config     *core.Config
	Store      io.Closer
	Validate   *validator.Validate
	Translator ut.Translator
	Schools    school.Service
	Students   student.Service
	Reports    report.Service
}

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	if err := run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cli := &commandLine{in: os.Stdin, out: os.Stdout}

	// migrations run against postgres directly, without building the store
	if len(args) < 2 || args[1] == "migrate" {
		conf := core.NewConfig()
		cli.conf = conf
		cli.openDB = func() (*sql.DB, error) { return database.Open(conf) }
		return cli.run(args)
	}

	var err error
	invokeErr := dig_container.New().Invoke(func(svcs services) {
		defer func() {
			if err := svcs.Store.Close(); err != nil {
				logger.Printf("closing store: %v", err)
			}
		}()
		cli.conf = svcs.Config
		cli.validate = svcs.Validate
		cli.translator = svcs.Translator
		cli.schools = svcs.Schools
		cli.students = svcs.Students
		cli.reports = svcs.Reports
		err = cli.run(args)
	})
	if invokeErr != nil {
		return invokeErr
	}
	return err
}
