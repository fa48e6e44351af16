package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core/content"
)

type Action string

const (
	ActionEdit       Action = "edit"
	ActionApply      Action = "apply"
	ActionCancel     Action = "cancel"
	ActionDelete     Action = "delete"
	ActionAddSection Action = "add-section"
	ActionAddTopic   Action = "add-topic"
	ActionAddSubject Action = "add-subject"
	ActionLogout     Action = "logout"
)

// Event is a user action resolved against the document.
// Ref is zero for page-level actions (add-subject, logout).
type Event struct {
	Action Action
	Ref    Ref
}

// ResolveClick finds the element matched by selector and resolves the closest
// action and the closest entity around it.
func (d *Document) ResolveClick(selector string) (Event, error) {
	target := d.doc.Find(selector).First()
	if target.Length() == 0 {
		return Event{}, errors.Wrapf(ErrEntityNotFound, "no element matches %q", selector)
	}
	actionEl := target.Closest("[data-action]")
	if actionEl.Length() == 0 {
		return Event{}, errors.Wrap(ErrNoAction, selector)
	}
	ev := Event{Action: Action(actionEl.AttrOr("data-action", ""))}

	if entityEl := actionEl.Closest("[data-entity]"); entityEl.Length() > 0 {
		ev.Ref = Ref{
			Kind: content.Kind(entityEl.AttrOr("data-entity", "")),
			Key:  entityEl.AttrOr("data-id", ""),
		}
	}
	return ev, nil
}

// ActionSelector returns a selector matching the action button of an entity,
// e.g. `[data-entity="section"][data-id="7"] [data-action="delete"]`.
// Keys are rendered ids or temp ids, neither of which needs escaping.
func ActionSelector(ref Ref, action Action) string {
	if ref.Kind == "" {
		return `[data-action="` + string(action) + `"]`
	}
	return `[data-entity="` + string(ref.Kind) + `"][data-id="` + ref.Key + `"] [data-presentation][data-owner="` + ref.Owner() +
		`"] [data-action="` + string(action) + `"]`
}

var skippedTags = map[string]bool{
	"input": true, "textarea": true, "select": true, "button": true, "script": true, "style": true,
}

// visibleText concatenates the text a reader would see: hidden nodes and form controls are skipped.
func visibleText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(s.Text())
			b.WriteByte(' ')
		case strings.HasPrefix(name, "#"): // comments, doctype
		case skippedTags[name]:
		default:
			if _, hidden := s.Attr(attrHidden); hidden {
				return
			}
			visibleText(s, b)
		}
	})
}

// VisibleText returns the visible text of the entity.
func (d *Document) VisibleText(ref Ref) string {
	var b strings.Builder
	visibleText(d.entity(ref), &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

// Filter hides every entity block whose visible text does not contain query (case-insensitive).
// An empty query shows all blocks.
func (d *Document) Filter(query string) {
	query = strings.ToLower(strings.Join(strings.Fields(query), " "))
	blocks := d.root().Find("[data-entity]")

	// compute all texts before touching the flags
	matches := make([]bool, blocks.Length())
	blocks.Each(func(i int, s *goquery.Selection) {
		if query == "" {
			matches[i] = true
			return
		}
		var b strings.Builder
		visibleText(s, &b)
		text := strings.Join(strings.Fields(b.String()), " ")
		matches[i] = strings.Contains(strings.ToLower(text), query)
	})
	blocks.Each(func(i int, s *goquery.Selection) {
		if matches[i] {
			s.RemoveAttr(attrFiltered)
		} else {
			s.SetAttr(attrFiltered, "true")
		}
	})
}

// IsFiltered reports whether the entity is hidden by the search filter.
func (d *Document) IsFiltered(ref Ref) bool {
	_, ok := d.entity(ref).Attr(attrFiltered)
	return ok
}
