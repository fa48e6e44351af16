package inmemdb

import (
	"sync"

	"github.com/trezcool/syllabus/core/content"
)

type (
	// DB is a process-local store. Every table is guarded by the same lock so the
	// hierarchy is always read in a consistent state.
	DB struct {
		mutex sync.RWMutex

		subjects map[int]*content.Subject
		sections map[int]*content.Section
		topics   map[int]*content.Topic

		// last assigned primary keys
		subjectPK int
		sectionPK int
		topicPK   int
	}
)

func Open() (*DB, error) {
	db := &DB{
		subjects: make(map[int]*content.Subject),
		sections: make(map[int]*content.Section),
		topics:   make(map[int]*content.Topic),
	}
	return db, nil
}

func (db *DB) Close() error { return nil }
