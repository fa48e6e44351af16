package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/trezcool/syllabus/apps/api/echo"
	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/storage/database/inmem"
)

const (
	adminUsername = "admin"
	adminPassword = "Zebra#42Lamp"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

// setup starts the API on an in-memory database and points the CLI at it.
func setup(t *testing.T) (*commandLine, *bytes.Buffer, content.Service) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	conf := &core.Config{
		Env:             "test",
		TestMode:        true,
		AppName:         "Syllabus",
		SecretKey:       "test-secret",
		SessionLifetime: time.Hour,
		Admin:           core.AdminConfig{Username: adminUsername, PasswordHash: string(hash)},
		Database:        core.DatabaseConfig{Engine: "inmem"},
	}
	conf.Console.ClockInterval = time.Minute

	db, err := inmemdb.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := inmemdb.NewContentRepository(db)
	svc := content.NewService(repo)

	server := echoapi.NewServer("", make(chan os.Signal, 1), &echoapi.Deps{Conf: conf, ContentSvc: svc})
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	conf.Console.APIURL = ts.URL

	readPasswordFunc = func(int) ([]byte, error) { return []byte(adminPassword), nil }
	openRepositoryFunc = func(context.Context, *core.Config) (content.Repository, func() error, error) {
		return repo, func() error { return nil }, nil
	}

	out := new(bytes.Buffer)
	cli := newCommandLine(conf, core.NopLogger{}, io.NopCloser(strings.NewReader("")), nopWriteCloser{out})
	return cli, out, svc
}

// seed creates Go(Basics(Variables)) and an empty SQL subject.
func seed(t *testing.T, svc content.Service) (gopher content.Subject, basics content.Section, vars content.Topic, sql content.Subject) {
	ctx := context.Background()
	var err error
	gopher, err = svc.CreateSubject(ctx, content.NewSubject{Name: "Go", Description: "Gophers"})
	require.NoError(t, err)
	basics, err = svc.CreateSection(ctx, gopher.ID, content.NewSection{Name: "Basics"})
	require.NoError(t, err)
	vars, err = svc.CreateTopic(ctx, basics.ID, content.NewTopic{Name: "Variables", Text: "Use `var`.", Code: "var x = 1"})
	require.NoError(t, err)
	sql, err = svc.CreateSubject(ctx, content.NewSubject{Name: "SQL"})
	require.NoError(t, err)
	return gopher, basics, vars, sql
}

func id(n int) string { return strconv.Itoa(n) }

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, before func(tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if before != nil {
				before(tt)
			}
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "import: no file", args: []string{"import"}, wantErr: errHelp},
		{name: "hashpassword: no username", args: []string{"hashpassword"}, wantErr: errHelp},
		{name: "add: no kind", args: []string{"add", "-username", adminUsername, "-name", "Go"}, wantErr: errHelp},
		{name: "add: unknown kind", args: []string{"add", "-username", adminUsername, "-kind", "chapter"}, wantErr: errHelp},
		{name: "add: no username", args: []string{"add", "-kind", "subject", "-name", "Go"}, wantErr: errHelp},
		{name: "add: section without parent", args: []string{"add", "-username", adminUsername, "-kind", "section", "-name", "Basics"}, wantErr: errHelp},
		{name: "edit: no id", args: []string{"edit", "-username", adminUsername, "-kind", "subject", "-name", "Go"}, wantErr: errHelp},
		{name: "delete: no id", args: []string{"delete", "-username", adminUsername, "-kind", "topic"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"export", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	}
	runCLITests(t, cli, tests, nil)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	migrateFunc = func(_ context.Context, _ *core.Config, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { migrateFunc = migrateDB })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "topic_tags", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	runCLITests(t, cli, tests, nil)
}

func Test_migrateDB_requiresPostgres(t *testing.T) {
	err := migrateDB(context.Background(), &core.Config{Database: core.DatabaseConfig{Engine: "inmem"}}, "up")
	if assert.Error(t, err) {
		assert.Equal(t, `migrate: database engine is "inmem", not "postgres"`, err.Error())
	}
}

func Test_commandLine_hashPassword(t *testing.T) {
	cli, out, _ := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no password", args: []string{"hashpassword", "-username", adminUsername}, extra: extra{}, wantErr: errHelp},
		{name: "too short", args: []string{"hashpassword", "-username", adminUsername}, extra: extra{pwd: "Ab1!"}, wantErrStr: "password must contain at least 8 characters"},
		{name: "similar to username", args: []string{"hashpassword", "-username", adminUsername}, extra: extra{pwd: "Admin123!"}, wantErrStr: "password cannot be similar to the username"},
		{name: "valid", args: []string{"hashpassword", "-username", " " + adminUsername + " "}, extra: extra{pwd: adminPassword}},
	}
	runCLITests(t, cli, tests, func(tt cliTest) {
		out.Reset()
		readPasswordFunc = func(int) ([]byte, error) {
			return []byte(tt.extra.(extra).pwd), nil
		}
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3) // prompt, username, hash
	assert.Equal(t, "TEST_ADMIN_USERNAME=admin", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "TEST_ADMIN_PASSWORDHASH='"))
	hash := strings.TrimSuffix(strings.TrimPrefix(lines[2], "TEST_ADMIN_PASSWORDHASH='"), "'")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(adminPassword)))
}

func Test_commandLine_importSubjects(t *testing.T) {
	cli, out, svc := setup(t)
	seed(t, svc)

	dir := t.TempDir()
	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
		return path
	}
	list := write("list.json", `[
		{"name": "Rust", "description": "Crabs", "sections": [
			{"name": "Ownership", "topics": [
				{"name": "Borrowing", "details": {"text": "Use &.", "code": "let y = &x;", "updated_at": "2023-01-02T03:04:05Z"}}
			]}
		]},
		{"name": "go"},
		{"name": "  "}
	]`)
	payload := write("payload.json", `{"subjects": [{"name": "Python"}]}`)
	broken := write("broken.json", `{"subjects": [`)

	tests := []cliTest{
		{name: "missing file", args: []string{"import", "-file", filepath.Join(dir, "lol.json")}, wantErrStr: "reading import file"},
		{name: "invalid json", args: []string{"import", "-file", broken}, wantErrStr: "decoding subjects"},
		{name: "list", args: []string{"import", "-file", list}},
		{name: "payload", args: []string{"import", "-file", payload}},
	}
	runCLITests(t, cli, tests, func(cliTest) { out.Reset() })
	assert.Contains(t, out.String(), "Imported 1 of 1 subjects")

	subjects, err := svc.QueryAll(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(subjects))
	for _, s := range subjects {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"Go", "SQL", "Rust", "Python"}, names)

	rust, err := svc.GetSubjectByName(context.Background(), "Rust")
	require.NoError(t, err)
	require.Len(t, rust.Sections, 1)
	require.Len(t, rust.Sections[0].Topics, 1)
	assert.Equal(t, "let y = &x;", rust.Sections[0].Topics[0].Details.Code)
}

func Test_decodeSubjects(t *testing.T) {
	for _, data := range []string{`[{"name": "Go"}]`, ` {"subjects": [{"name": "Go"}]} `} {
		subjects, err := decodeSubjects([]byte(data))
		require.NoError(t, err)
		require.Len(t, subjects, 1)
		assert.Equal(t, "Go", subjects[0].Name)
	}
}

func Test_commandLine_export(t *testing.T) {
	cli, out, svc := setup(t)
	gopher, _, _, sql := seed(t, svc)

	t.Run("stdout", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "export"}))
		page := out.String()
		assert.Contains(t, page, `data-entity="subject"`)
		assert.Contains(t, page, `data-id="`+id(gopher.ID)+`"`)
		assert.Contains(t, page, `data-id="`+id(sql.ID)+`"`)
		assert.Contains(t, page, "Variables")
	})

	t.Run("logged in, searched, to file", func(t *testing.T) {
		out.Reset()
		file := filepath.Join(t.TempDir(), "admin.html")
		require.NoError(t, cli.run([]string{"admin", "export", "-username", adminUsername, "-search", "variables", "-out", file}))
		assert.Contains(t, out.String(), "Exported 2 subjects to "+file)

		page, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(page), "data-filtered")
		assert.Contains(t, string(page), adminUsername)
	})

	t.Run("wrong password", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("lol"), nil }
		defer func() { readPasswordFunc = func(int) ([]byte, error) { return []byte(adminPassword), nil } }()
		err := cli.run([]string{"admin", "export", "-username", adminUsername})
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "logging in")
		}
	})
}

func Test_commandLine_add(t *testing.T) {
	cli, out, svc := setup(t)
	gopher, basics, _, _ := seed(t, svc)
	ctx := context.Background()

	tests := []cliTest{
		{name: "subject", args: []string{"add", "-username", adminUsername, "-kind", "subject", "-name", " Rust ", "-description", "Crabs"}},
		{name: "duplicate subject", args: []string{"add", "-username", adminUsername, "-kind", "subject", "-name", "go"}, wantErrStr: "exists"},
		{name: "section", args: []string{"add", "-username", adminUsername, "-kind", "section", "-parent", id(gopher.ID), "-name", "Concurrency"}},
		{name: "section of unknown subject", args: []string{"add", "-username", adminUsername, "-kind", "section", "-parent", "999", "-name", "Lol"}, wantErrStr: "not found"},
		{name: "topic", args: []string{"add", "-username", adminUsername, "-kind", "topic", "-parent", id(basics.ID), "-name", "Constants", "-code", "const y = 2"}},
	}
	runCLITests(t, cli, tests, func(cliTest) { out.Reset() })

	rust, err := svc.GetSubjectByName(ctx, "Rust")
	require.NoError(t, err)
	assert.Equal(t, "Crabs", rust.Description)

	gopher, err = svc.GetSubjectByName(ctx, "Go")
	require.NoError(t, err)
	require.Len(t, gopher.Sections, 2)
	var names []string
	for _, sect := range gopher.Sections {
		names = append(names, sect.Name)
		if sect.ID == basics.ID {
			require.Len(t, sect.Topics, 2)
			assert.Equal(t, "const y = 2", sect.Topics[1].Details.Code)
		}
	}
	assert.ElementsMatch(t, []string{"Basics", "Concurrency"}, names)
}

func Test_commandLine_edit(t *testing.T) {
	cli, out, svc := setup(t)
	gopher, basics, vars, sql := seed(t, svc)
	ctx := context.Background()

	tests := []cliTest{
		{name: "nothing to edit", args: []string{"edit", "-username", adminUsername, "-kind", "subject", "-id", id(gopher.ID)}, wantErrStr: "nothing to edit"},
		{name: "unknown entity", args: []string{"edit", "-username", adminUsername, "-kind", "topic", "-id", "999", "-name", "Lol"}, wantErrStr: "not found"},
		{name: "field of another kind", args: []string{"edit", "-username", adminUsername, "-kind", "section", "-id", id(basics.ID), "-code", "lol"}, wantErrStr: "section has no code"},
		{name: "duplicate name", args: []string{"edit", "-username", adminUsername, "-kind", "subject", "-id", id(sql.ID), "-name", "GO"}, wantErrStr: "exists"},
		{name: "subject description", args: []string{"edit", "-username", adminUsername, "-kind", "subject", "-id", id(gopher.ID), "-description", "Gophers & channels"}},
		{name: "section name", args: []string{"edit", "-username", adminUsername, "-kind", "section", "-id", id(basics.ID), "-name", "Fundamentals"}},
		{name: "topic code", args: []string{"edit", "-username", adminUsername, "-kind", "topic", "-id", id(vars.ID), "-code", "x := 1"}},
	}
	runCLITests(t, cli, tests, func(cliTest) { out.Reset() })
	assert.Contains(t, out.String(), fmt.Sprintf("Topic %d updated", vars.ID))

	gopher, err := svc.GetSubjectByName(ctx, "Go")
	require.NoError(t, err)
	assert.Equal(t, "Gophers & channels", gopher.Description)
	require.Len(t, gopher.Sections, 1)
	assert.Equal(t, "Fundamentals", gopher.Sections[0].Name)
	require.Len(t, gopher.Sections[0].Topics, 1)
	topic := gopher.Sections[0].Topics[0]
	assert.Equal(t, "Variables", topic.Name)
	assert.Equal(t, "Use `var`.", topic.Details.Text)
	assert.Equal(t, "x := 1", topic.Details.Code)
}

func Test_commandLine_delete(t *testing.T) {
	cli, out, svc := setup(t)
	gopher, basics, vars, sql := seed(t, svc)
	ctx := context.Background()

	tests := []cliTest{
		{name: "subject with sections", args: []string{"delete", "-username", adminUsername, "-kind", "subject", "-id", id(gopher.ID), "-yes"}, wantErr: errNotDeleted},
		{name: "section with topics", args: []string{"delete", "-username", adminUsername, "-kind", "section", "-id", id(basics.ID), "-yes"}, wantErr: errNotDeleted},
		{name: "unknown topic", args: []string{"delete", "-username", adminUsername, "-kind", "topic", "-id", "999", "-yes"}, wantErrStr: "not found"},
		{name: "topic", args: []string{"delete", "-username", adminUsername, "-kind", "topic", "-id", id(vars.ID), "-yes"}},
		{name: "section", args: []string{"delete", "-username", adminUsername, "-kind", "section", "-id", id(basics.ID), "-yes"}},
		{name: "subject", args: []string{"delete", "-username", adminUsername, "-kind", "subject", "-id", id(sql.ID), "-yes"}},
	}
	var printed []string
	runCLITests(t, cli, tests, func(cliTest) {
		printed = append(printed, out.String())
		out.Reset()
	})
	printed = append(printed, out.String())

	assert.Contains(t, printed[1], "Cannot delete subject with sections. Delete its sections first.")
	assert.Contains(t, printed[2], "Cannot delete section with topics. Delete its topics first.")
	assert.Contains(t, printed[6], fmt.Sprintf("Subject %d deleted", sql.ID))

	subjects, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, gopher.ID, subjects[0].ID)
	assert.Empty(t, subjects[0].Sections)
}
