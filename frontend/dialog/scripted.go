package dialog

import (
	"context"
	"sync"
)

// Shown is a dialog displayed by a Scripted presenter.
type Shown struct {
	Kind    Kind
	Message string
}

// Scripted answers dialogs from queued responses. Unscripted confirms are declined
// and unscripted forms are cancelled.
type Scripted struct {
	mu       sync.Mutex
	confirms []bool
	forms    []map[string]string
	shown    []Shown
}

var _ Presenter = (*Scripted)(nil)

func NewScripted() *Scripted {
	return &Scripted{}
}

// AnswerConfirm queues answers for the next Confirm calls.
func (s *Scripted) AnswerConfirm(answers ...bool) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirms = append(s.confirms, answers...)
	return s
}

// AnswerForm queues values for the next Form call; nil cancels it.
func (s *Scripted) AnswerForm(values map[string]string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = append(s.forms, values)
	return s
}

// Shown returns every dialog displayed so far.
func (s *Scripted) Shown() []Shown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Shown(nil), s.shown...)
}

func (s *Scripted) record(kind Kind, msg string) {
	s.shown = append(s.shown, Shown{Kind: kind, Message: msg})
}

func (s *Scripted) Confirm(ctx context.Context, message string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(KindConfirm, message)
	if len(s.confirms) == 0 {
		return false, nil
	}
	ok := s.confirms[0]
	s.confirms = s.confirms[1:]
	return ok, nil
}

func (s *Scripted) Warn(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(KindWarn, message)
	return nil
}

func (s *Scripted) Form(ctx context.Context, title string, fields []Field) (map[string]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(KindForm, title)
	if len(s.forms) == 0 || s.forms[0] == nil {
		if len(s.forms) > 0 {
			s.forms = s.forms[1:]
		}
		return nil, false, nil
	}
	values := s.forms[0]
	s.forms = s.forms[1:]
	return values, true, nil
}
