package main

import (
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	appfs "github.com/exoshivam/smart-attendance/fs"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	db, err := cli.openDB()
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()

	return gooseRunFunc(args[0], db, appfs.FS, "migrations", args[1:]...)
}
