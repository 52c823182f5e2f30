package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNonInteractive is returned when input must be prompted for but stdin
// is not a terminal.
var ErrNonInteractive = errors.New("input required in non-interactive mode")

// Prompter asks the user for input. Input and Select return io.EOF when the
// user ends the session (Ctrl-D or Ctrl-C).
type Prompter interface {
	Input(label string) (string, error)
	Password(label string) (string, error)
	Select(label string, items []string) (int, error)
}

// TerminalPrompter prompts on a terminal using promptui and x/term.
type TerminalPrompter struct {
	in  *os.File
	out io.Writer
}

func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

func (p *TerminalPrompter) interactive() bool {
	return term.IsTerminal(int(p.in.Fd()))
}

func (p *TerminalPrompter) Input(label string) (string, error) {
	if !p.interactive() {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, label)
	}
	prompt := promptui.Prompt{Label: label}
	value, err := prompt.Run()
	return value, mapPromptErr(err)
}

// Password reads without echo.
func (p *TerminalPrompter) Password(label string) (string, error) {
	if !p.interactive() {
		return "", fmt.Errorf("%w: %s", ErrNonInteractive, label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(p.in.Fd()))
	fmt.Fprintln(p.out) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func (p *TerminalPrompter) Select(label string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("nothing to select")
	}
	if !p.interactive() {
		return -1, fmt.Errorf("%w: %s", ErrNonInteractive, label)
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "{{ . | green }}",
	}
	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return -1, mapPromptErr(err)
	}
	return index, nil
}

func mapPromptErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, promptui.ErrEOF), errors.Is(err, promptui.ErrInterrupt):
		return io.EOF
	default:
		return fmt.Errorf("prompt failed: %w", err)
	}
}

// ask returns value, or prompts for it when empty.
func ask(p Prompter, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.Input(label)
}

// askPassword returns value, or prompts for it without echo when empty.
func askPassword(p Prompter, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.Password(label)
}
