package main

import (
	"github.com/trezcool/examhall/storage/database"
)

var (
	defaultRunMigrations = database.RunMigrations
	runMigrationsFunc    = defaultRunMigrations // mockable
)

func (cli *commandLine) migrate(args []string) error {
	return runMigrationsFunc(cli.db, args[0], args[1:]...)
}
