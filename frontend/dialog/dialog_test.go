package dialog

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blocking waits for ctx on every dialog, like a dialog nobody answers.
type blocking struct {
	opened chan string
}

func (b *blocking) Confirm(ctx context.Context, message string) (bool, error) {
	b.opened <- message
	<-ctx.Done()
	return false, ctx.Err()
}

func (b *blocking) Warn(ctx context.Context, message string) error {
	b.opened <- message
	<-ctx.Done()
	return ctx.Err()
}

func (b *blocking) Form(ctx context.Context, title string, fields []Field) (map[string]string, bool, error) {
	b.opened <- title
	<-ctx.Done()
	return nil, false, ctx.Err()
}

func TestConfirmRequiresExplicitYes(t *testing.T) {
	ctx := context.Background()
	p := NewScripted().AnswerConfirm(true, false)
	h := NewHelper(p)

	ok, err := h.Confirm(ctx, "Delete?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Confirm(ctx, "Delete?")
	require.NoError(t, err)
	assert.False(t, ok)

	// nothing scripted: no implicit yes
	ok, err = h.Confirm(ctx, "Delete?")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.Warn(ctx, "Careful"))
	assert.Equal(t, []Shown{
		{Kind: KindConfirm, Message: "Delete?"},
		{Kind: KindConfirm, Message: "Delete?"},
		{Kind: KindConfirm, Message: "Delete?"},
		{Kind: KindWarn, Message: "Careful"},
	}, p.Shown())
}

func TestForm(t *testing.T) {
	ctx := context.Background()
	p := NewScripted().AnswerForm(map[string]string{"name": "Basics"}).AnswerForm(nil)
	h := NewHelper(p)
	fields := []Field{{Name: "name", Label: "Section name", Required: true}}

	values, ok, err := h.Form(ctx, "New Section", fields)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Basics", values["name"])

	values, ok, err = h.Form(ctx, "New Section", fields)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, values)
}

func TestOpeningDialogDismissesSameKind(t *testing.T) {
	p := &blocking{opened: make(chan string, 2)}
	h := NewHelper(p)
	ctx := context.Background()

	first := make(chan bool, 1)
	go func() {
		ok, err := h.Confirm(ctx, "first")
		assert.NoError(t, err)
		first <- ok
	}()
	assert.Equal(t, "first", <-p.opened)

	secondCtx, cancel := context.WithCancel(ctx)
	second := make(chan error, 1)
	go func() {
		_, err := h.Confirm(secondCtx, "second")
		second <- err
	}()
	assert.Equal(t, "second", <-p.opened)

	select {
	case ok := <-first:
		assert.False(t, ok, "a replaced dialog resolves as dismissed")
	case <-time.After(time.Second):
		t.Fatal("first dialog was not dismissed")
	}

	// a dialog of another kind does not dismiss it
	warned := make(chan error, 1)
	go func() { warned <- h.Warn(ctx, "warn") }()
	assert.Equal(t, "warn", <-p.opened)
	select {
	case <-second:
		t.Fatal("second confirm must stay open")
	case <-time.After(50 * time.Millisecond):
	}

	// cancelling the caller context is an error, not a dismissal
	cancel()
	assert.ErrorIs(t, <-second, context.Canceled)

	// closing the warn through a newer warn
	go func() { _ = h.Warn(ctx, "warn 2") }()
	assert.Equal(t, "warn 2", <-p.opened)
	assert.NoError(t, <-warned)
}

func TestTerminalDismissedPromptStopsReading(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := &Terminal{Stdin: pr}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dismissed := make(chan error, 1)
	err := term.run(ctx, func(stdin io.ReadCloser) error {
		_, err := stdin.Read(make([]byte, 16))
		dismissed <- err
		return err
	})
	assert.Equal(t, context.Canceled, err)
	select {
	case err = <-dismissed:
		assert.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("dismissed prompt is still reading")
	}

	go func() { _, _ = pw.Write([]byte("yes\n")) }()
	var got string
	err = term.run(context.Background(), func(stdin io.ReadCloser) error {
		buf := make([]byte, 16)
		n, err := stdin.Read(buf)
		got = string(buf[:n])
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "yes\n", got)
}
