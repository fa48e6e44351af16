package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/frontend/console"
	"github.com/trezcool/syllabus/frontend/dialog"
	"github.com/trezcool/syllabus/frontend/dom"
	"github.com/trezcool/syllabus/frontend/gateway"
	"github.com/trezcool/syllabus/frontend/render"
)

var (
	errNotDeleted = errors.New("nothing was deleted")
	errCancelled  = errors.New("cancelled")
)

// sessionAPI is the REST client the content commands drive the console with.
type sessionAPI interface {
	console.API
	Login(ctx context.Context, username, password string) error
}

func newGatewayAPI(baseURL string) (sessionAPI, error) {
	return gateway.New(baseURL)
}

// flagPresenter answers the console dialogs from the command flags and
// falls back to terminal prompts for what the flags leave out.
type flagPresenter struct {
	values map[string]string
	yes    bool
	out    io.Writer
	term   dialog.Presenter
}

var _ dialog.Presenter = (*flagPresenter)(nil)

func (p *flagPresenter) Confirm(ctx context.Context, message string) (bool, error) {
	if p.yes {
		return true, nil
	}
	return p.term.Confirm(ctx, message)
}

func (p *flagPresenter) Warn(_ context.Context, message string) error {
	fmt.Fprintln(p.out, message)
	return nil
}

func (p *flagPresenter) Form(ctx context.Context, title string, fields []dialog.Field) (map[string]string, bool, error) {
	if p.values["name"] != "" {
		return p.values, true, nil
	}
	return p.term.Form(ctx, title, fields)
}

func (cli *commandLine) presenter(values map[string]string, yes bool) *flagPresenter {
	return &flagPresenter{
		values: values,
		yes:    yes,
		out:    cli.stdout,
		term:   &dialog.Terminal{Stdin: cli.stdin, Stdout: cli.stdout},
	}
}

// openConsole loads the admin console from the API, logging in first when username is set.
func (cli *commandLine) openConsole(ctx context.Context, username string, p dialog.Presenter) (*console.Console, error) {
	api, err := newAPIFunc(cli.conf.Console.APIURL)
	if err != nil {
		return nil, err
	}
	if username != "" {
		pwd, err := cli.readPassword()
		if err != nil {
			return nil, err
		}
		if err = api.Login(ctx, username, pwd); err != nil {
			return nil, errors.Wrap(err, "logging in")
		}
	}

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}
	c := console.New(api, dialog.NewHelper(p), renderer, console.Options{
		Username:      username,
		ClockInterval: cli.conf.Console.ClockInterval,
		Logger:        cli.logger,
	})
	if err = c.Initialize(ctx); err != nil {
		return nil, errors.Wrap(err, gateway.Message(err))
	}
	return c, nil
}

func entityRef(kind content.Kind, id int) dom.Ref {
	return dom.Ref{Kind: kind, Key: strconv.Itoa(id)}
}

// export writes the admin page, optionally filtered, to out (stdout when empty or "-").
func (cli *commandLine) export(username, search, out string) error {
	ctx := context.Background()
	c, err := cli.openConsole(ctx, username, cli.presenter(nil, false))
	if err != nil {
		return err
	}
	if search != "" {
		if err = c.Search(search); err != nil {
			return err
		}
	}
	page, err := c.HTML()
	if err != nil {
		return err
	}

	if out == "" || out == "-" {
		_, err = fmt.Fprintln(cli.stdout, page)
		return err
	}
	if err = os.WriteFile(out, []byte(page), 0o644); err != nil {
		return errors.Wrap(err, "writing export")
	}
	fmt.Fprintf(cli.stdout, "Exported %d subjects to %s\n", len(c.Document().Entities(content.KindSubject)), out)
	return nil
}

// add creates a subject, or a section/topic under parent, the way the dashboard does.
func (cli *commandLine) add(username string, kind content.Kind, parent int, values map[string]string) error {
	ctx := context.Background()
	c, err := cli.openConsole(ctx, username, cli.presenter(values, false))
	if err != nil {
		return err
	}

	var ref dom.Ref
	switch kind {
	case content.KindSubject:
		ref, err = cli.addSubject(ctx, c, values)
	case content.KindSection:
		ref, err = cli.addChild(ctx, c.AddSection, entityRef(content.KindSubject, parent))
	case content.KindTopic:
		ref, err = cli.addChild(ctx, c.AddTopic, entityRef(content.KindSection, parent))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "%s %s created\n", kind.Title(), ref.Key)
	return nil
}

func (cli *commandLine) addSubject(ctx context.Context, c *console.Console, values map[string]string) (dom.Ref, error) {
	if values["name"] == "" {
		var ok bool
		var err error
		values, ok, err = cli.presenter(nil, false).term.Form(ctx, render.NewSubjectText, []dialog.Field{
			{Name: "name", Label: "Subject name", Required: true},
			{Name: "description", Label: "Description", Multiline: true},
		})
		if err != nil {
			return dom.Ref{}, err
		}
		if !ok {
			return dom.Ref{}, errCancelled
		}
	}

	known := make(map[string]bool)
	for _, ref := range c.Document().Entities(content.KindSubject) {
		known[ref.Key] = true
	}

	tmp, err := c.AddSubject(ctx)
	if err != nil {
		return dom.Ref{}, err
	}
	for _, field := range []string{"name", "description"} {
		if err = c.Input(tmp, field, values[field]); err != nil {
			return dom.Ref{}, err
		}
	}
	if err = c.ApplyEdit(ctx, tmp); err != nil {
		return dom.Ref{}, err
	}

	for _, ref := range c.Document().Entities(content.KindSubject) {
		if !known[ref.Key] && ref != tmp {
			return ref, nil
		}
	}
	return dom.Ref{}, errors.New("created subject not found on the page")
}

func (cli *commandLine) addChild(
	ctx context.Context,
	add func(context.Context, dom.Ref) (dom.Ref, bool, error),
	parent dom.Ref,
) (dom.Ref, error) {
	ref, ok, err := add(ctx, parent)
	if err != nil {
		return dom.Ref{}, err
	}
	if !ok {
		return dom.Ref{}, errCancelled
	}
	return ref, nil
}

// edit updates the fields given on the command line, keeping the others as saved.
func (cli *commandLine) edit(username string, kind content.Kind, id int, values map[string]string) error {
	if len(values) == 0 {
		return errors.New("nothing to edit: set at least one of -name, -description, -text, -code")
	}
	ctx := context.Background()
	c, err := cli.openConsole(ctx, username, cli.presenter(nil, false))
	if err != nil {
		return err
	}

	ref := entityRef(kind, id)
	if err = c.BeginEdit(ctx, ref); err != nil {
		return err
	}
	for field, value := range values {
		if err = c.Input(ref, field, value); err != nil {
			return errors.Wrapf(err, "%s has no %s", kind, field)
		}
	}
	if err = c.ApplyEdit(ctx, ref); err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "%s %d updated\n", kind.Title(), id)
	return nil
}

// delete removes the entity once its children pre-check passed and the deletion is confirmed.
func (cli *commandLine) delete(username string, kind content.Kind, id int, yes bool) error {
	ctx := context.Background()
	c, err := cli.openConsole(ctx, username, cli.presenter(nil, yes))
	if err != nil {
		return err
	}

	ref := entityRef(kind, id)
	if err = c.Delete(ctx, ref); err != nil {
		return err
	}
	if c.Document().Exists(ref) {
		return errNotDeleted
	}
	fmt.Fprintf(cli.stdout, "%s %d deleted\n", kind.Title(), id)
	return nil
}
