package console

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/frontend/dialog"
	"github.com/trezcool/syllabus/frontend/gateway"
	"github.com/trezcool/syllabus/frontend/render"
)

type response struct {
	status int
	body   string
}

// fakeAPI is an in-memory rendition of the content REST API that records every call.
type fakeAPI struct {
	mu        sync.Mutex
	subjects  []content.Subject
	overrides map[string]response
	calls     []string
	nextID    int
}

func newFakeAPI(subjects ...content.Subject) *fakeAPI {
	return &fakeAPI{subjects: subjects, overrides: make(map[string]response), nextID: 100}
}

func (f *fakeAPI) override(call string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[call] = response{status, body}
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) find(kind string, id int) (si, ci, ti int, ok bool) {
	for si = range f.subjects {
		if kind == "subjects" && f.subjects[si].ID == id {
			return si, -1, -1, true
		}
		for ci = range f.subjects[si].Sections {
			if kind == "sections" && f.subjects[si].Sections[ci].ID == id {
				return si, ci, -1, true
			}
			for ti = range f.subjects[si].Sections[ci].Topics {
				if kind == "topics" && f.subjects[si].Sections[ci].Topics[ti].ID == id {
					return si, ci, ti, true
				}
			}
		}
	}
	return 0, 0, 0, false
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := r.Method + " " + r.URL.Path
	f.calls = append(f.calls, call)
	if resp, ok := f.overrides[call]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
		return
	}

	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Text        string `json:"text"`
		Code        string `json:"code"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	ok := map[string]string{"message": "ok"}

	// /api/<kind>/<id>[/<sub>]
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
	if len(parts) == 1 {
		switch {
		case r.Method == http.MethodGet && parts[0] == "subjects":
			write(w, 200, map[string]interface{}{"subjects": f.subjects})
		case r.Method == http.MethodPost && parts[0] == "subjects":
			f.nextID++
			subj := content.Subject{ID: f.nextID, Name: in.Name, Description: in.Description, Sections: []content.Section{}}
			f.subjects = append(f.subjects, subj)
			write(w, 201, subj)
		case r.Method == http.MethodPost && parts[0] == "logout":
			write(w, 200, ok)
		default:
			write(w, 404, map[string]string{"error": "Not Found"})
		}
		return
	}

	id, _ := strconv.Atoi(parts[1])
	si, ci, ti, found := f.find(parts[0], id)
	if !found {
		write(w, 404, map[string]string{"error": "Not Found"})
		return
	}
	sub := ""
	if len(parts) > 2 {
		sub = parts[2]
	}

	switch parts[0] + " " + r.Method + " " + sub {
	case "subjects GET check":
		write(w, 200, map[string]bool{"hasSections": len(f.subjects[si].Sections) > 0})
	case "subjects PUT ":
		f.subjects[si].Name, f.subjects[si].Description = in.Name, in.Description
		write(w, 200, ok)
	case "subjects DELETE ":
		f.subjects = append(f.subjects[:si], f.subjects[si+1:]...)
		write(w, 200, ok)
	case "subjects POST sections":
		f.nextID++
		sect := content.Section{ID: f.nextID, SubjectID: id, Name: in.Name, Topics: []content.Topic{}}
		f.subjects[si].Sections = append(f.subjects[si].Sections, sect)
		write(w, 201, sect)
	case "sections GET check":
		write(w, 200, map[string]bool{"hasTopics": len(f.subjects[si].Sections[ci].Topics) > 0})
	case "sections PUT ":
		f.subjects[si].Sections[ci].Name = in.Name
		write(w, 200, ok)
	case "sections DELETE ":
		sections := f.subjects[si].Sections
		f.subjects[si].Sections = append(sections[:ci], sections[ci+1:]...)
		write(w, 200, ok)
	case "sections POST topics":
		f.nextID++
		topic := content.Topic{ID: f.nextID, SectionID: id, Name: in.Name, Details: content.TopicDetails{Text: in.Text, Code: in.Code}}
		f.subjects[si].Sections[ci].Topics = append(f.subjects[si].Sections[ci].Topics, topic)
		write(w, 201, topic)
	case "topics PUT ":
		topic := &f.subjects[si].Sections[ci].Topics[ti]
		topic.Name, topic.Details.Text, topic.Details.Code = in.Name, in.Text, in.Code
		write(w, 200, ok)
	case "topics DELETE ":
		topics := f.subjects[si].Sections[ci].Topics
		f.subjects[si].Sections[ci].Topics = append(topics[:ti], topics[ti+1:]...)
		write(w, 200, ok)
	default:
		write(w, 405, map[string]string{"error": "Method Not Allowed"})
	}
}

type fixture struct {
	api     *fakeAPI
	dialogs *dialog.Scripted
	console *Console
}

func newFixture(t *testing.T, subjects ...content.Subject) *fixture {
	t.Helper()
	api := newFakeAPI(subjects...)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := gateway.New(srv.URL)
	require.NoError(t, err)
	scripted := dialog.NewScripted()
	c := New(client, dialog.NewHelper(scripted), render.MustNew(), Options{Username: "admin"})
	return &fixture{api: api, dialogs: scripted, console: c}
}

// sampleSubjects: "Go" (1) owns section 7 "Concurrency" with topic 70; "SQL" (2) owns section 8 without topics;
// "Rust" (3) is empty.
func sampleSubjects() []content.Subject {
	return []content.Subject{
		{
			ID: 1, Name: "Go", Description: "A language",
			Sections: []content.Section{
				{
					ID: 7, SubjectID: 1, Name: "Concurrency",
					Topics: []content.Topic{
						{ID: 70, SectionID: 7, Name: "Channels", Details: content.TopicDetails{Text: "Typed conduits", Code: "ch := make(chan int)"}},
					},
				},
			},
		},
		{
			ID: 2, Name: "SQL",
			Sections: []content.Section{{ID: 8, SubjectID: 2, Name: "Joins", Topics: []content.Topic{}}},
		},
		{ID: 3, Name: "Rust", Description: "Ownership", Sections: []content.Section{}},
	}
}
