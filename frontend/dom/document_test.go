package dom

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/frontend/render"
)

var (
	subj1  = Ref{Kind: content.KindSubject, Key: "1"}
	subj2  = Ref{Kind: content.KindSubject, Key: "2"}
	sect10 = Ref{Kind: content.KindSection, Key: "10"}
	topic7 = Ref{Kind: content.KindTopic, Key: "7"}
)

func testSubjects() []content.Subject {
	return []content.Subject{
		{
			ID: 1, Name: "Go", Description: "A language",
			Sections: []content.Section{
				{
					ID: 10, SubjectID: 1, Name: "Concurrency",
					Topics: []content.Topic{
						{ID: 7, SectionID: 10, Name: "Channels", Details: content.TopicDetails{Text: "Typed conduits", Code: "ch := make(chan int)"}},
					},
				},
			},
		},
		{ID: 2, Name: "SQL", Sections: []content.Section{}},
	}
}

func newDocument(t *testing.T) *Document {
	t.Helper()
	r := render.MustNew()
	body, err := r.Hierarchy(testSubjects())
	require.NoError(t, err)
	page, err := r.Admin(render.AdminPage{Title: "Admin", LastUpdated: "10:00", Body: body})
	require.NoError(t, err)
	doc, err := Parse(page)
	require.NoError(t, err)
	return doc
}

func TestParseRequiresRoot(t *testing.T) {
	_, err := Parse(template.HTML("<html><body><p>nope</p></body></html>"))
	assert.Equal(t, ErrNoRoot, err)
}

func TestEntitiesAndParents(t *testing.T) {
	doc := newDocument(t)

	assert.Equal(t, []Ref{subj1, subj2}, doc.Entities(content.KindSubject))
	assert.Equal(t, []Ref{sect10}, doc.Entities(content.KindSection))

	parent, ok := doc.Parent(topic7)
	require.True(t, ok)
	assert.Equal(t, sect10, parent)
	parent, ok = doc.Parent(sect10)
	require.True(t, ok)
	assert.Equal(t, subj1, parent)
	_, ok = doc.Parent(subj1)
	assert.False(t, ok)

	assert.Equal(t, "No sections available", doc.Placeholder(subj2))
	assert.True(t, doc.IsEmpty(&subj2))
	assert.False(t, doc.IsEmpty(&subj1))
}

func TestModes(t *testing.T) {
	doc := newDocument(t)

	for _, ref := range []Ref{subj1, sect10, topic7} {
		mode, err := doc.Mode(ref)
		require.NoError(t, err)
		assert.Equal(t, Viewing, mode, ref.String())
	}

	// a nested entity switching mode leaves its ancestors alone
	require.NoError(t, doc.SetMode(sect10, Editing))
	mode, _ := doc.Mode(sect10)
	assert.Equal(t, Editing, mode)
	mode, _ = doc.Mode(subj1)
	assert.Equal(t, Viewing, mode)

	require.NoError(t, doc.SetMode(sect10, Viewing))
	mode, _ = doc.Mode(sect10)
	assert.Equal(t, Viewing, mode)

	_, err := doc.Mode(Ref{Kind: content.KindTopic, Key: "404"})
	assert.Error(t, err)
}

func TestFieldsAndErrors(t *testing.T) {
	doc := newDocument(t)

	name, err := doc.Field(subj1, "name")
	require.NoError(t, err)
	assert.Equal(t, "Go", name)
	desc, err := doc.Field(subj1, "description")
	require.NoError(t, err)
	assert.Equal(t, "A language", desc)

	require.NoError(t, doc.SetField(subj1, "description", "Gophers <3"))
	desc, _ = doc.Field(subj1, "description")
	assert.Equal(t, "Gophers <3", desc)

	code, _ := doc.Field(topic7, "code")
	assert.Equal(t, "ch := make(chan int)", code)

	assert.Equal(t, "A language", doc.DisplayText(subj1, "description"))
	require.NoError(t, doc.SetDisplayText(subj1, "name", "Golang"))
	assert.Equal(t, "Golang", doc.DisplayText(subj1, "name"))
	assert.Equal(t, "Concurrency", doc.DisplayText(sect10, "name"), "nested display text is untouched")

	_, shown := doc.Error(sect10)
	assert.False(t, shown)
	require.NoError(t, doc.SetError(sect10, "Section name is required"))
	msg, shown := doc.Error(sect10)
	assert.True(t, shown)
	assert.Equal(t, "Section name is required", msg)
	_, shown = doc.Error(subj1)
	assert.False(t, shown)
	doc.ClearError(sect10)
	_, shown = doc.Error(sect10)
	assert.False(t, shown)
}

func TestStructuralEdits(t *testing.T) {
	doc := newDocument(t)
	r := render.MustNew()

	require.NoError(t, doc.Remove(topic7))
	assert.False(t, doc.Exists(topic7))
	assert.True(t, doc.IsEmpty(&sect10))
	placeholder, _ := r.Placeholder(render.NoTopicsText)
	doc.EnsurePlaceholder(&sect10, placeholder)
	doc.EnsurePlaceholder(&sect10, placeholder)
	assert.Equal(t, "No topics available", doc.Placeholder(sect10))

	html, err := r.Topic(content.Topic{ID: 8, SectionID: 10, Name: "Select"})
	require.NoError(t, err)
	require.NoError(t, doc.Append(sect10, html))
	assert.Empty(t, doc.Placeholder(sect10))
	assert.True(t, doc.Exists(Ref{Kind: content.KindTopic, Key: "8"}))

	html, err = r.Subject(content.Subject{TempID: "temp_x"})
	require.NoError(t, err)
	doc.Prepend(html)
	temp := Ref{Kind: content.KindSubject, Key: "temp_x"}
	assert.Equal(t, []Ref{temp, subj1, subj2}, doc.Entities(content.KindSubject))
	assert.True(t, doc.Focused(temp, "name"))
	assert.Equal(t, "New Subject", doc.DisplayText(temp, "name"))

	html, err = r.Subject(content.Subject{ID: 3, Name: "Rust"})
	require.NoError(t, err)
	require.NoError(t, doc.Replace(temp, html))
	assert.Equal(t, []Ref{{Kind: content.KindSubject, Key: "3"}, subj1, subj2}, doc.Entities(content.KindSubject))

	doc.SetLastUpdated("10:01")
	assert.Equal(t, "10:01", doc.LastUpdated())
}

func TestFilter(t *testing.T) {
	doc := newDocument(t)

	doc.Filter("channels")
	assert.False(t, doc.IsFiltered(subj1))
	assert.False(t, doc.IsFiltered(sect10))
	assert.False(t, doc.IsFiltered(topic7))
	assert.True(t, doc.IsFiltered(subj2))

	// edit inputs and buttons do not count as visible text
	doc.Filter("edit")
	assert.True(t, doc.IsFiltered(subj1))
	assert.True(t, doc.IsFiltered(subj2))

	doc.Filter("SQL")
	assert.True(t, doc.IsFiltered(subj1))
	assert.False(t, doc.IsFiltered(subj2))

	doc.Filter("")
	for _, ref := range []Ref{subj1, subj2, sect10, topic7} {
		assert.False(t, doc.IsFiltered(ref))
	}
}

func TestResolveClick(t *testing.T) {
	doc := newDocument(t)

	tests := []struct {
		name     string
		selector string
		want     Event
		wantErr  bool
	}{
		{name: "section delete", selector: ActionSelector(sect10, ActionDelete), want: Event{Action: ActionDelete, Ref: sect10}},
		{name: "subject add-section", selector: ActionSelector(subj2, ActionAddSection), want: Event{Action: ActionAddSection, Ref: subj2}},
		{name: "topic apply", selector: ActionSelector(topic7, ActionApply), want: Event{Action: ActionApply, Ref: topic7}},
		{name: "page add-subject", selector: ActionSelector(Ref{}, ActionAddSubject), want: Event{Action: ActionAddSubject}},
		{name: "text without action", selector: `[data-field="name"]`, wantErr: true},
		{name: "missing", selector: "#nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doc.ResolveClick(tt.selector)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
