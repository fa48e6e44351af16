package content

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core"
)

// Kind names one level of the hierarchy.
type Kind string

const (
	KindSubject Kind = "subject"
	KindSection Kind = "section"
	KindTopic   Kind = "topic"
)

// Title returns the capitalized kind, e.g. "Subject".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// TempIDPrefix marks subjects that only exist client side.
const TempIDPrefix = "temp_"

type Subject struct {
	ID          int       `json:"id"`
	TempID      string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
	Sections    []Section `json:"sections"`
}

// Key identifies the subject in rendered markup.
func (s Subject) Key() string {
	if s.TempID != "" {
		return s.TempID
	}
	return strconv.Itoa(s.ID)
}

func (s Subject) IsTransient() bool { return s.TempID != "" }

type Section struct {
	ID        int       `json:"id"`
	SubjectID int       `json:"subject_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Topics    []Topic   `json:"topics"`
}

func (s Section) Key() string { return strconv.Itoa(s.ID) }

type Topic struct {
	ID        int          `json:"id"`
	SectionID int          `json:"section_id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Details   TopicDetails `json:"details"`
}

func (t Topic) Key() string { return strconv.Itoa(t.ID) }

// UnmarshalJSON accepts the legacy shape where the update timestamp lives in details.
func (t *Topic) UnmarshalJSON(data []byte) error {
	type topic Topic
	aux := struct {
		*topic
		Details struct {
			TopicDetails
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"details"`
	}{topic: (*topic)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Details = aux.Details.TopicDetails
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = aux.Details.UpdatedAt
	}
	return nil
}

type TopicDetails struct {
	Text  string `json:"text"`
	Code  string `json:"code"`
	Table *Table `json:"table"`
	Image string `json:"image"`
}

func (d TopicDetails) IsEmpty() bool {
	return d.Text == "" && d.Code == "" && d.Table == nil && d.Image == ""
}

type Table struct {
	Headers      []string   `json:"headers"`
	Rows         [][]string `json:"rows"`
	ColumnWidths []string   `json:"columnWidths,omitempty"`
}

// ColumnWidth returns the declared width of column i, or "auto".
func (t Table) ColumnWidth(i int) string {
	if i < len(t.ColumnWidths) && t.ColumnWidths[i] != "" {
		return t.ColumnWidths[i]
	}
	return "auto"
}

// NewSubject contains information needed to create or update a Subject.
type NewSubject struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	if ns.Name == "" {
		return errNameRequired(KindSubject)
	}
	return validate.Struct(ns)
}

// NewSection contains information needed to create or update a Section.
type NewSection struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	if ns.Name == "" {
		return errNameRequired(KindSection)
	}
	return validate.Struct(ns)
}

// NewTopic contains information needed to create or update a Topic.
// The flat {name, text, code} shape is used for both create and update.
type NewTopic struct {
	Name string `json:"name" validate:"notblank,max=100"`
	Text string `json:"text"`
	Code string `json:"code"`
}

func (nt *NewTopic) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Text = core.CleanString(nt.Text)
	nt.Code = CleanCode(nt.Code)
	if nt.Name == "" {
		return errNameRequired(KindTopic)
	}
	return validate.Struct(nt)
}

// CleanCode drops trailing blank space of a code sample, keeping its indentation.
func CleanCode(code string) string {
	return strings.TrimRight(code, " \t\r\n")
}

// NameRequiredMessage is the message shown when a name is missing, e.g. "Topic name is required".
func NameRequiredMessage(kind Kind) string {
	return kind.Title() + " name is required"
}

func errNameRequired(kind Kind) error {
	return core.NewValidationError(errors.New(NameRequiredMessage(kind)))
}
