package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/storage/database"
)

// migrateDB runs a goose command on the configured postgres database, creating it when missing.
func migrateDB(ctx context.Context, conf *core.Config, command string, args ...string) error {
	if conf.Database.Engine != database.EnginePostgres {
		return errors.Errorf("migrate: database engine is %q, not %q", conf.Database.Engine, database.EnginePostgres)
	}
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return database.Migrate(ctx, db, command, args...)
}

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(context.Background(), cli.conf, args[0], args[1:]...)
}
