package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/account"
	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/storage/database"
)

var (
	readPasswordFunc   = term.ReadPassword              // mockable
	migrateFunc        = migrateDB                      // mockable
	openRepositoryFunc = database.OpenContentRepository // mockable
	newAPIFunc         = newGatewayAPI                  // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	stdin      io.ReadCloser
	stdout     io.WriteCloser
	validate   *validator.Validate
	translator ut.Translator
}

func newCommandLine(conf *core.Config, logger core.Logger, stdin io.ReadCloser, stdout io.WriteCloser) *commandLine {
	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)
	return &commandLine{
		conf:       conf,
		logger:     logger,
		stdin:      stdin,
		stdout:     stdout,
		validate:   validate,
		translator: translator,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout, "Usage:")
	fmt.Fprintln(cli.stdout, "  migrate COMMAND [ARGS]                          - run a goose command (up, down, status, ...) on the postgres database")
	fmt.Fprintln(cli.stdout, "  import -file FILE                               - import subjects from a JSON file into the configured database")
	fmt.Fprintln(cli.stdout, "  hashpassword -username USERNAME                 - hash a new admin password (prompted) for admin.passwordHash")
	fmt.Fprintln(cli.stdout, "  export [-username U] [-search Q] [-out FILE]    - write the admin page of the API's subjects")
	fmt.Fprintln(cli.stdout, "  add -username U -kind KIND [-parent ID] [FIELDS] - add a subject, section or topic through the API")
	fmt.Fprintln(cli.stdout, "  edit -username U -kind KIND -id ID [FIELDS]     - edit a subject, section or topic through the API")
	fmt.Fprintln(cli.stdout, "  delete -username U -kind KIND -id ID [-yes]     - delete a subject, section or topic through the API")
	fmt.Fprintln(cli.stdout, "FIELDS: -name N -description D (subject) -text T -code C (topic)")
}

// entityFlags are the flags shared by add & edit.
type entityFlags struct {
	username    *string
	kind        *string
	name        *string
	description *string
	text        *string
	code        *string
}

func newEntityFlags(fs *flag.FlagSet) entityFlags {
	return entityFlags{
		username:    fs.String("username", "", "The admin username. The password will be prompted next."),
		kind:        fs.String("kind", "", "subject, section or topic"),
		name:        fs.String("name", "", "The name"),
		description: fs.String("description", "", "The subject description"),
		text:        fs.String("text", "", "The topic text (markdown)"),
		code:        fs.String("code", "", "The topic code sample"),
	}
}

// values returns the field flags explicitly set on the command line.
func (ef entityFlags) values(fs *flag.FlagSet) map[string]string {
	values := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name", "description", "text", "code":
			values[f.Name] = f.Value.String()
		}
	})
	return values
}

func parseKind(s string) (content.Kind, bool) {
	switch k := content.Kind(s); k {
	case content.KindSubject, content.KindSection, content.KindTopic:
		return k, true
	}
	return "", false
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	migrateCmd := flag.NewFlagSet("migrate", flag.ContinueOnError)

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The JSON file holding the subjects, either a list or {\"subjects\": [...]}")

	hashPasswordCmd := flag.NewFlagSet("hashpassword", flag.ContinueOnError)
	hashPasswordUname := hashPasswordCmd.String("username", "", "The admin username. The password will be prompted next.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportUname := exportCmd.String("username", "", "The admin username, to export as a logged in admin")
	exportSearch := exportCmd.String("search", "", "Hide the subjects, sections & topics not matching this text")
	exportOut := exportCmd.String("out", "", "The output file (default: stdout)")

	addCmd := flag.NewFlagSet("add", flag.ContinueOnError)
	addFlags := newEntityFlags(addCmd)
	addParent := addCmd.Int("parent", 0, "The parent subject (for a section) or section (for a topic) ID")

	editCmd := flag.NewFlagSet("edit", flag.ContinueOnError)
	editFlags := newEntityFlags(editCmd)
	editID := editCmd.Int("id", 0, "The ID of the entity to edit")

	deleteCmd := flag.NewFlagSet("delete", flag.ContinueOnError)
	deleteUname := deleteCmd.String("username", "", "The admin username. The password will be prompted next.")
	deleteKind := deleteCmd.String("kind", "", "subject, section or topic")
	deleteID := deleteCmd.Int("id", 0, "The ID of the entity to delete")
	deleteYes := deleteCmd.Bool("yes", false, "Do not ask for confirmation")

	for _, fs := range []*flag.FlagSet{migrateCmd, importCmd, hashPasswordCmd, exportCmd, addCmd, editCmd, deleteCmd} {
		fs.SetOutput(cli.stdout)
	}

	switch args[1] {
	case "migrate":
		if err := migrateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if migrateCmd.NArg() == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(migrateCmd.Args())

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importSubjects(*importFile)

	case "hashpassword":
		if err := hashPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *hashPasswordUname == "" {
			hashPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			hashPasswordCmd.Usage()
			return errHelp
		}
		return cli.hashPassword(*hashPasswordUname, pwd)

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.export(*exportUname, *exportSearch, *exportOut)

	case "add":
		if err := addCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, ok := parseKind(*addFlags.kind)
		if !ok || *addFlags.username == "" || (kind != content.KindSubject && *addParent <= 0) {
			addCmd.Usage()
			return errHelp
		}
		return cli.add(*addFlags.username, kind, *addParent, addFlags.values(addCmd))

	case "edit":
		if err := editCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, ok := parseKind(*editFlags.kind)
		if !ok || *editFlags.username == "" || *editID <= 0 {
			editCmd.Usage()
			return errHelp
		}
		return cli.edit(*editFlags.username, kind, *editID, editFlags.values(editCmd))

	case "delete":
		if err := deleteCmd.Parse(args[2:]); err != nil {
			return err
		}
		kind, ok := parseKind(*deleteKind)
		if !ok || *deleteUname == "" || *deleteID <= 0 {
			deleteCmd.Usage()
			return errHelp
		}
		return cli.delete(*deleteUname, kind, *deleteID, *deleteYes)

	default:
		cli.printUsage()
		return errHelp
	}
}

// readPassword prompts for a password without echoing it.
func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.stdout, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.stdout)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
