// Package console drives the admin page: it loads the hierarchy, filters it,
// and runs the per-entity view/edit flows against the REST API.
package console

import (
	"context"
	"html/template"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/frontend/dialog"
	"github.com/trezcool/syllabus/frontend/dom"
	"github.com/trezcool/syllabus/frontend/gateway"
	"github.com/trezcool/syllabus/frontend/render"
)

type State int

const (
	Loading State = iota
	Error
	Empty
	Loaded
)

func (s State) String() string {
	return [...]string{"loading", "error", "empty", "loaded"}[s]
}

const (
	LoginRoute      = "/login"
	DefaultTitle    = "Admin Dashboard"
	defaultInterval = time.Minute
)

var (
	ErrNotInitialized = errors.New("console not initialized")
	ErrUnknownEvent   = errors.New("no handler for event")
)

// API is the part of the REST client the console needs.
type API interface {
	FetchHierarchy(ctx context.Context) ([]content.Subject, error)
	Logout(ctx context.Context) error

	CreateSubject(ctx context.Context, name, description string) (content.Subject, error)
	UpdateSubject(ctx context.Context, id int, name, description string) error
	CheckSubject(ctx context.Context, id int) (bool, error)
	RemoveSubject(ctx context.Context, id int) error

	CreateSection(ctx context.Context, subjectID int, name string) (content.Section, error)
	UpdateSection(ctx context.Context, id int, name string) error
	CheckSection(ctx context.Context, id int) (bool, error)
	RemoveSection(ctx context.Context, id int) error

	CreateTopic(ctx context.Context, sectionID int, name, text, code string) (content.Topic, error)
	UpdateTopic(ctx context.Context, id int, name, text, code string) error
	DeleteTopic(ctx context.Context, id int) error
}

type (
	Options struct {
		Title         string
		Username      string
		ClockInterval time.Duration
		Logger        core.Logger
	}

	handlerKey struct {
		kind   content.Kind
		action dom.Action
	}

	handlerFunc func(ctx context.Context, ref dom.Ref) error

	// Console serializes every handler: each runs to completion, network and
	// dialog waits included, before the next one starts.
	Console struct {
		mu sync.Mutex

		api      API
		dialogs  *dialog.Helper
		render   *render.Renderer
		validate *validator.Validate
		logger   core.Logger
		opts     Options
		nowFunc  func() time.Time

		doc      *dom.Document
		state    State
		location string
		handlers map[handlerKey]handlerFunc

		// last committed values, keyed by entity key
		subjects map[string]content.Subject
		sections map[string]content.Section
		topics   map[string]content.Topic
	}
)

func New(api API, dialogs *dialog.Helper, r *render.Renderer, opts Options) *Console {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.ClockInterval <= 0 {
		opts.ClockInterval = defaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	validate, _ := core.NewValidator()

	c := &Console{
		api:      api,
		dialogs:  dialogs,
		render:   r,
		validate: validate,
		logger:   opts.Logger,
		opts:     opts,
		nowFunc:  time.Now,
	}
	c.registerHandlers()
	return c
}

// registerHandlers wires the single delegation table, keyed by (entity kind, action).
func (c *Console) registerHandlers() {
	c.handlers = make(map[handlerKey]handlerFunc)
	for _, kind := range []content.Kind{content.KindSubject, content.KindSection, content.KindTopic} {
		c.handlers[handlerKey{kind, dom.ActionEdit}] = c.beginEdit
		c.handlers[handlerKey{kind, dom.ActionApply}] = c.applyEdit
		c.handlers[handlerKey{kind, dom.ActionCancel}] = c.cancelEdit
		c.handlers[handlerKey{kind, dom.ActionDelete}] = c.delete
	}
	c.handlers[handlerKey{content.KindSubject, dom.ActionAddSection}] = func(ctx context.Context, ref dom.Ref) error {
		_, err := c.addSection(ctx, ref)
		return err
	}
	c.handlers[handlerKey{content.KindSection, dom.ActionAddTopic}] = func(ctx context.Context, ref dom.Ref) error {
		_, err := c.addTopic(ctx, ref)
		return err
	}
	c.handlers[handlerKey{"", dom.ActionAddSubject}] = func(ctx context.Context, _ dom.Ref) error {
		_, err := c.addSubject(ctx)
		return err
	}
	c.handlers[handlerKey{"", dom.ActionLogout}] = func(ctx context.Context, _ dom.Ref) error {
		loc, err := c.logout(ctx)
		if loc != "" {
			c.location = loc
		}
		return err
	}
}

func (c *Console) now() string {
	return c.nowFunc().Format(render.ClockFormat)
}

func (c *Console) message(kind render.MessageKind, text string) template.HTML {
	html, err := c.render.Message(kind, text)
	if err != nil {
		c.logger.Error("rendering message", err)
		return template.HTML(template.HTMLEscapeString(text))
	}
	return html
}

// Initialize loads the hierarchy and renders it. Fetch failures are rendered as
// the error state and also returned.
func (c *Console) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Loading
	c.subjects = make(map[string]content.Subject)
	c.sections = make(map[string]content.Section)
	c.topics = make(map[string]content.Topic)

	page, err := c.render.Admin(render.AdminPage{
		Title:       c.opts.Title,
		Username:    c.opts.Username,
		LastUpdated: c.now(),
		Body:        c.message(render.MessageLoading, render.LoadingText),
	})
	if err != nil {
		return errors.Wrap(err, "rendering page")
	}
	if c.doc, err = dom.Parse(page); err != nil {
		return err
	}

	subjects, err := c.api.FetchHierarchy(ctx)
	if err != nil {
		c.state = Error
		c.doc.SetBody(c.message(render.MessageError, gateway.Message(err)))
		c.logger.Error("loading subjects", err)
		return err
	}
	if len(subjects) == 0 {
		c.state = Empty
		c.doc.SetBody(c.message(render.MessageEmpty, render.EmptyText))
		return nil
	}

	body, err := c.render.Hierarchy(subjects)
	if err != nil {
		c.state = Error
		c.doc.SetBody(c.message(render.MessageError, gateway.Message(err)))
		return err
	}
	c.doc.SetBody(body)
	for _, subj := range subjects {
		c.commitSubject(subj)
	}
	c.state = Loaded
	return nil
}

func (c *Console) commitSubject(subj content.Subject) {
	c.subjects[subj.Key()] = subj
	for _, sect := range subj.Sections {
		c.commitSection(sect)
	}
}

func (c *Console) commitSection(sect content.Section) {
	c.sections[sect.Key()] = sect
	for _, topic := range sect.Topics {
		c.topics[topic.Key()] = topic
	}
}

func (c *Console) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Document exposes the page model. Callers must not use it while handlers run.
func (c *Console) Document() *dom.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Location returns the route the page navigated to (after logout), if any.
func (c *Console) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// Search hides the entity blocks whose visible text does not contain query.
func (c *Console) Search(query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrNotInitialized
	}
	c.doc.Filter(query)
	return nil
}

// Click dispatches a click on the element matched by selector.
func (c *Console) Click(ctx context.Context, selector string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrNotInitialized
	}
	ev, err := c.doc.ResolveClick(selector)
	if err != nil {
		return err
	}
	return c.dispatch(ctx, ev)
}

// Handle dispatches an already resolved event.
func (c *Console) Handle(ctx context.Context, ev dom.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrNotInitialized
	}
	return c.dispatch(ctx, ev)
}

func (c *Console) dispatch(ctx context.Context, ev dom.Event) error {
	h, ok := c.handlers[handlerKey{ev.Ref.Kind, ev.Action}]
	if !ok {
		return errors.Wrapf(ErrUnknownEvent, "%s on %q", ev.Action, ev.Ref)
	}
	return h(ctx, ev.Ref)
}

// RunClock refreshes the last-updated text every ClockInterval until ctx is done.
func (c *Console) RunClock(ctx context.Context) {
	ticker := time.NewTicker(c.opts.ClockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Console) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc != nil {
		c.doc.SetLastUpdated(c.now())
	}
}

// HTML returns the current page markup.
func (c *Console) HTML() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return "", ErrNotInitialized
	}
	return c.doc.HTML()
}

func entityID(ref dom.Ref) (int, error) {
	id, err := strconv.Atoi(ref.Key)
	if err != nil {
		return 0, errors.Wrapf(err, "%s is not persisted", ref)
	}
	return id, nil
}
