// Package dom is a headless model of the admin page, backed by goquery.
package dom

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core/content"
)

const (
	RootID        = "subjects-container"
	LastUpdatedID = "last-updated"

	attrHidden   = "hidden"
	attrFiltered = "data-filtered"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrNoAction       = errors.New("no action at target")
	ErrNoRoot         = errors.New("root container not found")
)

type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

// Ref identifies a rendered entity by kind and key (decimal id or temp id).
type Ref struct {
	Kind content.Kind
	Key  string
}

func (r Ref) Owner() string { return string(r.Kind) + ":" + r.Key }

func (r Ref) String() string { return r.Owner() }

// ParseRef parses an owner value such as "section:7".
func ParseRef(owner string) (Ref, bool) {
	parts := strings.SplitN(owner, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, false
	}
	return Ref{Kind: content.Kind(parts[0]), Key: parts[1]}, true
}

type Document struct {
	doc *goquery.Document
}

// Parse loads a full page. The page must contain the #subjects-container root.
func Parse(page template.HTML) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return nil, errors.Wrap(err, "parsing page")
	}
	d := &Document{doc: doc}
	if d.root().Length() == 0 {
		return nil, ErrNoRoot
	}
	return d, nil
}

func (d *Document) root() *goquery.Selection {
	return d.doc.Find("#" + RootID)
}

func attrIs(name, value string) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(name)
		return ok && v == value
	}
}

func (d *Document) entity(ref Ref) *goquery.Selection {
	return d.root().Find("[data-entity]").
		FilterFunction(attrIs("data-entity", string(ref.Kind))).
		FilterFunction(attrIs("data-id", ref.Key)).
		First()
}

func (d *Document) owned(ref Ref, selector string) *goquery.Selection {
	return d.entity(ref).Find(selector).FilterFunction(attrIs("data-owner", ref.Owner())).First()
}

func (d *Document) presentation(ref Ref, mode Mode) *goquery.Selection {
	p := "view"
	if mode == Editing {
		p = "edit"
	}
	return d.owned(ref, `[data-presentation="`+p+`"]`)
}

func (d *Document) Exists(ref Ref) bool {
	return d.entity(ref).Length() > 0
}

// Entities lists the refs of the rendered entities of a kind, in document order.
func (d *Document) Entities(kind content.Kind) []Ref {
	var refs []Ref
	d.root().Find("[data-entity]").FilterFunction(attrIs("data-entity", string(kind))).Each(func(_ int, s *goquery.Selection) {
		refs = append(refs, Ref{Kind: kind, Key: s.AttrOr("data-id", "")})
	})
	return refs
}

// Parent returns the ref of the entity owning ref, if any.
func (d *Document) Parent(ref Ref) (Ref, bool) {
	return ParseRef(d.entity(ref).AttrOr("data-parent", ""))
}

// Mode reports which presentation of the entity is visible.
func (d *Document) Mode(ref Ref) (Mode, error) {
	view := d.presentation(ref, Viewing)
	if view.Length() == 0 {
		return Viewing, errors.Wrap(ErrEntityNotFound, ref.String())
	}
	if _, hidden := view.Attr(attrHidden); hidden {
		return Editing, nil
	}
	return Viewing, nil
}

// SetMode shows exactly one presentation of the entity.
func (d *Document) SetMode(ref Ref, mode Mode) error {
	view, edit := d.presentation(ref, Viewing), d.presentation(ref, Editing)
	if view.Length() == 0 || edit.Length() == 0 {
		return errors.Wrap(ErrEntityNotFound, ref.String())
	}
	shown, hidden := view, edit
	if mode == Editing {
		shown, hidden = edit, view
	}
	shown.RemoveAttr(attrHidden)
	hidden.SetAttr(attrHidden, "")
	return nil
}

func (d *Document) input(ref Ref, name string) *goquery.Selection {
	return d.presentation(ref, Editing).Find("input, textarea").FilterFunction(attrIs("name", name)).First()
}

// Field returns the current value of an edit input.
func (d *Document) Field(ref Ref, name string) (string, error) {
	in := d.input(ref, name)
	if in.Length() == 0 {
		return "", errors.Wrapf(ErrEntityNotFound, "%s field %s", ref, name)
	}
	if goquery.NodeName(in) == "textarea" {
		return in.Text(), nil
	}
	return in.AttrOr("value", ""), nil
}

func (d *Document) SetField(ref Ref, name, value string) error {
	in := d.input(ref, name)
	if in.Length() == 0 {
		return errors.Wrapf(ErrEntityNotFound, "%s field %s", ref, name)
	}
	if goquery.NodeName(in) == "textarea" {
		in.SetText(value)
	} else {
		in.SetAttr("value", value)
	}
	return nil
}

// Focused reports whether the edit input carries autofocus.
func (d *Document) Focused(ref Ref, name string) bool {
	_, ok := d.input(ref, name).Attr("autofocus")
	return ok
}

// DisplayText returns the text of a data-field element of the view presentation.
func (d *Document) DisplayText(ref Ref, field string) string {
	return strings.TrimSpace(d.presentation(ref, Viewing).Find("[data-field]").FilterFunction(attrIs("data-field", field)).First().Text())
}

func (d *Document) SetDisplayText(ref Ref, field, text string) error {
	el := d.presentation(ref, Viewing).Find("[data-field]").FilterFunction(attrIs("data-field", field)).First()
	if el.Length() == 0 {
		return errors.Wrapf(ErrEntityNotFound, "%s display %s", ref, field)
	}
	el.SetText(text)
	return nil
}

// Error returns the inline error of the entity and whether it is shown.
func (d *Document) Error(ref Ref) (string, bool) {
	slot := d.owned(ref, `[data-role="error"]`)
	if slot.Length() == 0 {
		return "", false
	}
	_, hidden := slot.Attr(attrHidden)
	return strings.TrimSpace(slot.Text()), !hidden
}

func (d *Document) SetError(ref Ref, msg string) error {
	slot := d.owned(ref, `[data-role="error"]`)
	if slot.Length() == 0 {
		return errors.Wrap(ErrEntityNotFound, ref.String())
	}
	slot.SetText(msg)
	slot.RemoveAttr(attrHidden)
	return nil
}

func (d *Document) ClearError(ref Ref) {
	slot := d.owned(ref, `[data-role="error"]`)
	slot.SetText("")
	slot.SetAttr(attrHidden, "")
}

// Remove drops the entity node.
func (d *Document) Remove(ref Ref) error {
	node := d.entity(ref)
	if node.Length() == 0 {
		return errors.Wrap(ErrEntityNotFound, ref.String())
	}
	node.Remove()
	return nil
}

// Replace swaps the entity node for new markup.
func (d *Document) Replace(ref Ref, html template.HTML) error {
	node := d.entity(ref)
	if node.Length() == 0 {
		return errors.Wrap(ErrEntityNotFound, ref.String())
	}
	node.ReplaceWithHtml(string(html))
	return nil
}

// SetBody replaces the whole content of the root container.
func (d *Document) SetBody(html template.HTML) {
	d.root().SetHtml(string(html))
}

// Prepend inserts markup at the top of the root container, dropping any status message.
func (d *Document) Prepend(html template.HTML) {
	root := d.root()
	root.ChildrenFiltered(`[data-role="message"]`).Remove()
	root.PrependHtml(string(html))
}

// Message returns the status message shown in place of the hierarchy, if any.
func (d *Document) Message() string {
	return strings.TrimSpace(d.root().ChildrenFiltered(`[data-role="message"]`).Text())
}

// Body returns the markup of the root container.
func (d *Document) Body() (string, error) {
	return d.root().Html()
}

func (d *Document) container(owner Ref) *goquery.Selection {
	return d.owned(owner, "[data-container]")
}

// Append adds markup at the end of the container owned by owner and drops its placeholder.
func (d *Document) Append(owner Ref, html template.HTML) error {
	c := d.container(owner)
	if c.Length() == 0 {
		return errors.Wrapf(ErrEntityNotFound, "%s container", owner)
	}
	c.ChildrenFiltered(`[data-role="placeholder"]`).Remove()
	c.AppendHtml(string(html))
	return nil
}

// IsEmpty reports whether the container owned by owner holds no entity. A nil owner means the root.
func (d *Document) IsEmpty(owner *Ref) bool {
	c := d.root()
	if owner != nil {
		c = d.container(*owner)
	}
	return c.ChildrenFiltered("[data-entity]").Length() == 0
}

// Placeholder returns the placeholder text of the container owned by owner.
func (d *Document) Placeholder(owner Ref) string {
	return strings.TrimSpace(d.container(owner).ChildrenFiltered(`[data-role="placeholder"]`).Text())
}

// EnsurePlaceholder shows html in the container owned by owner (nil for the root) when it holds no entity.
func (d *Document) EnsurePlaceholder(owner *Ref, html template.HTML) {
	c := d.root()
	if owner != nil {
		c = d.container(*owner)
	}
	if c.ChildrenFiltered("[data-entity]").Length() > 0 {
		return
	}
	if c.ChildrenFiltered(`[data-role="placeholder"], [data-role="message"]`).Length() > 0 {
		return
	}
	c.AppendHtml(string(html))
}

func (d *Document) LastUpdated() string {
	return strings.TrimSpace(d.doc.Find("#" + LastUpdatedID).Text())
}

func (d *Document) SetLastUpdated(text string) {
	d.doc.Find("#" + LastUpdatedID).SetText(text)
}

func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}
