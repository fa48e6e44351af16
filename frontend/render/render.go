// Package render turns content entities into the admin console markup.
//
// Every entity node carries data-entity/data-id attributes and a pair of
// view/edit presentations tagged with data-owner="<kind>:<key>", so the
// console can find and toggle them without relying on document position.
// Rendering is pure: the same input always yields the same markup.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/trezcool/syllabus/core/content"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

// MessageKind is the kind of a status message rendered in place of the hierarchy.
type MessageKind string

const (
	MessageLoading MessageKind = "loading"
	MessageError   MessageKind = "error"
	MessageEmpty   MessageKind = "empty"
)

const (
	LoadingText = "Loading subjects..."
	EmptyText   = "No subjects found"

	NoSectionsText    = "No sections available"
	NoTopicsText      = "No topics available"
	NewSubjectText    = "New Subject"
	NoDescriptionText = "No description"

	// ClockFormat is the layout of the "last updated" stamp.
	ClockFormat = "Jan 2, 2006 15:04"
)

type (
	// AdminPage is the admin dashboard shell.
	AdminPage struct {
		Title       string
		Username    string
		LastUpdated string
		Query       string
		Body        template.HTML
	}

	LoginPage struct {
		Title    string
		Username string
		Error    string
	}

	IndexPage struct {
		Title    string
		Subjects []content.Subject
	}

	SubjectPage struct {
		Subject content.Subject
	}

	Renderer struct {
		tmpl      *template.Template
		md        goldmark.Markdown
		style     *chroma.Style
		formatter *chromahtml.Formatter
	}
)

// Owner returns the data-owner value of an entity, e.g. "section:7".
func Owner(kind content.Kind, key string) string {
	return string(kind) + ":" + key
}

func New() (*Renderer, error) {
	r := &Renderer{
		// raw HTML in topic text is dropped, goldmark's default
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
		style:     styles.Get("github"),
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}

	funcs := template.FuncMap{
		"owner": func(kind string, key interface{}) string {
			return Owner(content.Kind(kind), fmt.Sprint(key))
		},
		"markdown":  r.markdown,
		"highlight": r.highlight,
	}
	tmpl, err := template.New("render").Funcs(funcs).ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "parsing templates")
	}
	r.tmpl = tmpl
	return r, nil
}

// MustNew is like New but panics on error. Templates are embedded so this only fails on a broken build.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) markdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", errors.Wrap(err, "converting markdown")
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) highlight(code string) (template.HTML, error) {
	lexer := lexers.Analyse(code)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", errors.Wrap(err, "tokenising code")
	}
	var buf bytes.Buffer
	if err = r.formatter.Format(&buf, r.style, iterator); err != nil {
		return "", errors.Wrap(err, "formatting code")
	}
	return template.HTML(buf.String()), nil
}

// CSS returns the stylesheet of the code highlighting classes.
func (r *Renderer) CSS() (string, error) {
	var buf bytes.Buffer
	if err := r.formatter.WriteCSS(&buf, r.style); err != nil {
		return "", errors.Wrap(err, "writing highlight css")
	}
	return buf.String(), nil
}

func (r *Renderer) exec(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s", name)
	}
	return template.HTML(strings.TrimSpace(buf.String())), nil
}

func (r *Renderer) Subject(subj content.Subject) (template.HTML, error) {
	return r.exec("subject", subj)
}

func (r *Renderer) Section(sect content.Section) (template.HTML, error) {
	return r.exec("section", sect)
}

func (r *Renderer) Topic(topic content.Topic) (template.HTML, error) {
	return r.exec("topic", topic)
}

// Hierarchy renders every subject in order.
func (r *Renderer) Hierarchy(subjects []content.Subject) (template.HTML, error) {
	return r.exec("hierarchy", subjects)
}

// Placeholder renders the empty-container text, e.g. "No topics available".
func (r *Renderer) Placeholder(text string) (template.HTML, error) {
	return r.exec("placeholder", text)
}

func (r *Renderer) Message(kind MessageKind, text string) (template.HTML, error) {
	return r.exec("message", struct {
		Kind MessageKind
		Text string
	}{kind, text})
}

func (r *Renderer) Admin(page AdminPage) (template.HTML, error) {
	return r.exec("admin", page)
}

func (r *Renderer) Login(page LoginPage) (template.HTML, error) {
	return r.exec("login", page)
}

func (r *Renderer) Index(page IndexPage) (template.HTML, error) {
	return r.exec("index", page)
}

func (r *Renderer) SubjectPage(page SubjectPage) (template.HTML, error) {
	return r.exec("subject-page", page)
}
