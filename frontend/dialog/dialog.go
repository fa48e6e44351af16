// Package dialog gates destructive and creation flows behind user decisions.
package dialog

import (
	"context"
	"sync"
)

type Kind int

const (
	KindConfirm Kind = iota
	KindWarn
	KindForm
)

func (k Kind) String() string {
	switch k {
	case KindConfirm:
		return "confirm"
	case KindWarn:
		return "warn"
	default:
		return "form"
	}
}

type (
	// Field is one input of a creation form.
	Field struct {
		Name      string
		Label     string
		Required  bool
		Multiline bool
	}

	// Presenter displays dialogs. Implementations must return once ctx is done.
	Presenter interface {
		Confirm(ctx context.Context, message string) (bool, error)
		Warn(ctx context.Context, message string) error
		Form(ctx context.Context, title string, fields []Field) (values map[string]string, ok bool, err error)
	}

	// Helper shows at most one dialog of each kind at a time:
	// opening a dialog dismisses the displayed instance of the same kind.
	Helper struct {
		presenter Presenter

		mu     sync.Mutex
		seq    int
		active map[Kind]instance
	}

	instance struct {
		id     int
		cancel context.CancelFunc
	}
)

func NewHelper(p Presenter) *Helper {
	return &Helper{presenter: p, active: make(map[Kind]instance)}
}

func (h *Helper) open(ctx context.Context, kind Kind) (context.Context, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.active[kind]; ok {
		prev.cancel()
	}
	h.seq++
	id := h.seq
	dctx, cancel := context.WithCancel(ctx)
	h.active[kind] = instance{id: id, cancel: cancel}

	return dctx, func() {
		cancel()
		h.mu.Lock()
		if cur, ok := h.active[kind]; ok && cur.id == id {
			delete(h.active, kind)
		}
		h.mu.Unlock()
	}
}

// dismissed reports whether the dialog was closed by a newer instance rather than by the caller.
func dismissed(parent, dctx context.Context) bool {
	return parent.Err() == nil && dctx.Err() != nil
}

// Confirm returns true only on an explicit affirmative answer. It never times out.
func (h *Helper) Confirm(ctx context.Context, message string) (bool, error) {
	dctx, done := h.open(ctx, KindConfirm)
	defer done()

	ok, err := h.presenter.Confirm(dctx, message)
	if dismissed(ctx, dctx) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Warn shows message and returns once acknowledged (or dismissed).
func (h *Helper) Warn(ctx context.Context, message string) error {
	dctx, done := h.open(ctx, KindWarn)
	defer done()

	err := h.presenter.Warn(dctx, message)
	if dismissed(ctx, dctx) {
		return nil
	}
	return err
}

// Form asks for the given fields. ok is false when the form was cancelled or dismissed.
func (h *Helper) Form(ctx context.Context, title string, fields []Field) (map[string]string, bool, error) {
	dctx, done := h.open(ctx, KindForm)
	defer done()

	values, ok, err := h.presenter.Form(dctx, title, fields)
	if dismissed(ctx, dctx) {
		return nil, false, nil
	}
	if err != nil || !ok {
		return nil, false, err
	}
	return values, true, nil
}
