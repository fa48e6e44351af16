package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core/content"
)

// decodeSubjects accepts a bare list of subjects or the {"subjects": [...]} API payload.
func decodeSubjects(data []byte) ([]content.Subject, error) {
	data = bytes.TrimSpace(data)
	var subjects []content.Subject
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &subjects); err != nil {
			return nil, errors.Wrap(err, "decoding subjects")
		}
		return subjects, nil
	}
	var payload struct {
		Subjects []content.Subject `json:"subjects"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding subjects")
	}
	return payload.Subjects, nil
}

// importSubjects creates the subjects of file in the configured database, skipping existing names.
func (cli *commandLine) importSubjects(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrap(err, "reading import file")
	}
	subjects, err := decodeSubjects(data)
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo, closeDB, err := openRepositoryFunc(ctx, cli.conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = closeDB() }()

	created, err := content.NewService(repo).Import(ctx, subjects)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "Imported %d of %d subjects\n", created, len(subjects))
	return nil
}
