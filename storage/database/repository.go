package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/content"
	inmemdb "github.com/trezcool/syllabus/storage/database/inmem"
	pgrepos "github.com/trezcool/syllabus/storage/database/postgres"
)

// OpenContentRepository opens the content repository of the configured engine.
// Postgres databases are created when missing and migrated to the latest version.
// The returned func releases the underlying connection.
func OpenContentRepository(ctx context.Context, conf *core.Config) (content.Repository, func() error, error) {
	switch conf.Database.Engine {
	case EngineInMem:
		db, err := inmemdb.Open()
		if err != nil {
			return nil, nil, err
		}
		return inmemdb.NewContentRepository(db), db.Close, nil

	case EnginePostgres:
		if err := CreateIfNotExist(ctx, conf); err != nil {
			return nil, nil, err
		}
		db, err := Open(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		if err = Migrate(ctx, db, "up"); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pgrepos.NewContentRepository(db), db.Close, nil
	}
	return nil, nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}
