// Package prompt asks the user questions when stdin is a terminal.
package prompt

import (
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/karmanspace/tracker/internal/errors"
)

// ErrNotInteractive is returned when a question cannot be asked because
// stdin is not a terminal.
var ErrNotInteractive = errors.New("prompt: stdin is not a terminal")

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt: aborted")

// Prompter asks questions.
type Prompter interface {
	// Select returns one of options.
	Select(title string, options []string) (string, error)
	// Confirm returns the user's yes/no answer.
	Confirm(title string) (bool, error)
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return term.IsTerminal(int(fd)) || isatty.IsCygwinTerminal(fd)
}

// Terminal prompts with huh forms on a terminal.
type Terminal struct {
	in          *os.File
	out         io.Writer
	accessible  bool
	interactive func(*os.File) bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithAccessible switches to huh's line-based accessible mode.
func WithAccessible(on bool) Option {
	return func(t *Terminal) { t.accessible = on }
}

// WithOutput sets where prompts are drawn.
func WithOutput(w io.Writer) Option {
	return func(t *Terminal) {
		if w != nil {
			t.out = w
		}
	}
}

// NewTerminal creates a Terminal reading from in.
func NewTerminal(in *os.File, opts ...Option) *Terminal {
	t := &Terminal{
		in:          in,
		out:         os.Stderr,
		interactive: IsInteractive,
		accessible:  os.Getenv("ACCESSIBLE") != "",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interactive reports whether questions can be asked.
func (t *Terminal) Interactive() bool {
	return t.interactive(t.in)
}

// Select asks the user to pick one option.
func (t *Terminal) Select(title string, options []string) (string, error) {
	if !t.Interactive() {
		return "", ErrNotInteractive
	}
	if len(options) == 0 {
		return "", errors.NewValidationError("no options to choose from").WithField("options")
	}
	choice := options[0]
	field := huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(options...)...).
		Value(&choice)
	if err := t.run(field); err != nil {
		return "", err
	}
	return choice, nil
}

// Confirm asks a yes/no question. The default answer is no.
func (t *Terminal) Confirm(title string) (bool, error) {
	if !t.Interactive() {
		return false, ErrNotInteractive
	}
	var ok bool
	field := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := t.run(field); err != nil {
		return false, err
	}
	return ok, nil
}

func (t *Terminal) run(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(t.in).
		WithOutput(t.out).
		WithAccessible(t.accessible)
	err := form.Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// Scripted answers from fixed values. It is used when the answers are
// already known, such as --yes on the command line and in tests.
type Scripted struct {
	Answer string
	Yes    bool
	Err    error

	Asked []string
}

// Select returns s.Answer, or the first option when Answer is empty.
func (s *Scripted) Select(title string, options []string) (string, error) {
	s.Asked = append(s.Asked, title)
	if s.Err != nil {
		return "", s.Err
	}
	if s.Answer == "" && len(options) > 0 {
		return options[0], nil
	}
	return s.Answer, nil
}

// Confirm returns s.Yes.
func (s *Scripted) Confirm(title string) (bool, error) {
	s.Asked = append(s.Asked, title)
	return s.Yes, s.Err
}
