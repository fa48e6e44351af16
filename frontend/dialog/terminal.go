package dialog

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
)

var errBlank = errors.New("this field cannot be blank")

// Terminal presents dialogs on a terminal with promptui.
type Terminal struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser

	once sync.Once
	in   *input
}

var _ Presenter = (*Terminal)(nil)

// input pumps the terminal's stdin to the prompt currently shown.
type input struct {
	chunks chan []byte
	err    error // set before chunks is closed

	mu   sync.Mutex
	rest []byte
}

func newInput(src io.Reader) *input {
	in := &input{chunks: make(chan []byte)}
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				in.chunks <- append([]byte(nil), buf[:n]...)
			}
			if err != nil {
				in.err = err
				close(in.chunks)
				return
			}
		}
	}()
	return in
}

// promptReader is the stdin of a single prompt. Once closed it reads EOF and leaves
// the remaining input to the next prompt.
type promptReader struct {
	in   *input
	done chan struct{}
	once sync.Once
}

func (r *promptReader) Read(p []byte) (int, error) {
	select {
	case <-r.done:
		return 0, io.EOF
	default:
	}

	r.in.mu.Lock()
	if len(r.in.rest) > 0 {
		n := copy(p, r.in.rest)
		r.in.rest = r.in.rest[n:]
		r.in.mu.Unlock()
		return n, nil
	}
	r.in.mu.Unlock()

	select {
	case <-r.done:
		return 0, io.EOF
	case b, ok := <-r.in.chunks:
		if !ok {
			return 0, r.in.err
		}
		n := copy(p, b)
		if n < len(b) {
			r.in.mu.Lock()
			r.in.rest = append(r.in.rest, b[n:]...)
			r.in.mu.Unlock()
		}
		return n, nil
	}
}

func (r *promptReader) Close() error {
	r.once.Do(func() { close(r.done) })
	return nil
}

func (t *Terminal) stdin() *promptReader {
	t.once.Do(func() {
		var src io.Reader = os.Stdin
		if t.Stdin != nil {
			src = t.Stdin
		}
		t.in = newInput(src)
	})
	return &promptReader{in: t.in, done: make(chan struct{})}
}

// run waits for fn or ctx. The prompt's stdin is closed on return, so an abandoned prompt stops reading.
func (t *Terminal) run(ctx context.Context, fn func(stdin io.ReadCloser) error) error {
	stdin := t.stdin()
	defer stdin.Close()

	res := make(chan error, 1)
	go func() { res <- fn(stdin) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-res:
		return err
	}
}

func isAbort(err error) bool {
	return err == promptui.ErrAbort || err == promptui.ErrInterrupt || err == promptui.ErrEOF
}

func (t *Terminal) Confirm(ctx context.Context, message string) (bool, error) {
	err := t.run(ctx, func(stdin io.ReadCloser) error {
		prompt := promptui.Prompt{
			Label:     message,
			IsConfirm: true,
			Stdin:     stdin,
			Stdout:    t.Stdout,
		}
		_, err := prompt.Run()
		return err
	})
	if err != nil {
		if isAbort(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (t *Terminal) Warn(ctx context.Context, message string) error {
	err := t.run(ctx, func(stdin io.ReadCloser) error {
		sel := promptui.Select{
			Label:  message,
			Items:  []string{"OK"},
			Stdin:  stdin,
			Stdout: t.Stdout,
		}
		_, _, err := sel.Run()
		return err
	})
	if err != nil && !isAbort(err) {
		return err
	}
	return nil
}

func (t *Terminal) Form(ctx context.Context, title string, fields []Field) (map[string]string, bool, error) {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		f := f
		label := f.Label
		if label == "" {
			label = f.Name
		}
		var validate promptui.ValidateFunc
		if f.Required {
			validate = func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errBlank
				}
				return nil
			}
		}

		var value string
		err := t.run(ctx, func(stdin io.ReadCloser) error {
			prompt := promptui.Prompt{
				Label:    title + " - " + label,
				Validate: validate,
				Stdin:    stdin,
				Stdout:   t.Stdout,
			}
			var err error
			value, err = prompt.Run()
			return err
		})
		if err != nil {
			if isAbort(err) || err == context.Canceled {
				return nil, false, nil
			}
			return nil, false, err
		}
		if f.Multiline {
			// a literal \n typed on the single prompt line stands for a newline
			value = strings.ReplaceAll(value, `\n`, "\n")
		}
		values[f.Name] = value
	}
	return values, true, nil
}
