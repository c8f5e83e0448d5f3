// SPDX-License-Identifier: MPL-2.0

package prompt

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

const (
	// ThemeDefault uses the base huh theme.
	ThemeDefault Theme = "default"
	// ThemeCharm uses the Charm theme.
	ThemeCharm Theme = "charm"
	// ThemeDracula uses the Dracula theme.
	ThemeDracula Theme = "dracula"
	// ThemeCatppuccin uses the Catppuccin theme.
	ThemeCatppuccin Theme = "catppuccin"
	// ThemeBase16 uses the Base16 theme.
	ThemeBase16 Theme = "base16"
)

// ErrCancelled is returned when the user aborts a form with Ctrl+C or Esc.
var ErrCancelled = errors.New("interactive session cancelled")

type (
	// Theme represents the visual theme for prompts.
	Theme string

	// Config holds common configuration for prompts.
	Config struct {
		// Theme specifies the visual theme to use.
		Theme Theme
		// Accessible replaces the full-screen forms with line-based prompts.
		Accessible bool
		// Input and Output default to stdin and stderr.
		Input  io.Reader
		Output io.Writer
	}

	// Option is one entry of a Select menu.
	Option struct {
		Label string
		Value string
	}

	// Prompter asks the user single questions. Every method returns
	// ErrCancelled when the user aborts.
	Prompter interface {
		Select(ctx context.Context, title string, options []Option) (string, error)
		Input(ctx context.Context, title, placeholder string, validate func(string) error) (string, error)
		Password(ctx context.Context, title, description string) (string, error)
		Confirm(ctx context.Context, title, description string, def bool) (bool, error)
	}

	// Huh implements Prompter with one-field huh forms.
	Huh struct {
		cfg Config
	}
)

// DefaultConfig returns the default prompt configuration. The ACCESSIBLE
// environment variable switches to accessible mode.
func DefaultConfig() Config {
	return Config{
		Theme:      ThemeDefault,
		Accessible: os.Getenv("ACCESSIBLE") != "",
		Input:      os.Stdin,
		Output:     os.Stderr,
	}
}

// NewHuh returns a Prompter backed by huh.
func NewHuh(cfg Config) *Huh {
	return &Huh{cfg: cfg}
}

// Select shows a single-choice menu and returns the chosen value.
func (h *Huh) Select(ctx context.Context, title string, options []Option) (string, error) {
	var result string
	huhOpts := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOpts[i] = huh.NewOption(opt.Label, opt.Value)
	}
	sel := huh.NewSelect[string]().
		Title(title).
		Options(huhOpts...).
		Value(&result)
	if err := h.run(ctx, sel); err != nil {
		return "", err
	}
	return result, nil
}

// Input asks for one line of text. The placeholder is shown greyed out and
// is not part of the answer.
func (h *Huh) Input(ctx context.Context, title, placeholder string, validate func(string) error) (string, error) {
	var result string
	in := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&result)
	if validate != nil {
		in = in.Validate(validate)
	}
	if err := h.run(ctx, in); err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

// Password asks for a secret with echo disabled.
func (h *Huh) Password(ctx context.Context, title, description string) (string, error) {
	var result string
	in := huh.NewInput().
		Title(title).
		Description(description).
		EchoMode(huh.EchoModePassword).
		Value(&result)
	if err := h.run(ctx, in); err != nil {
		return "", err
	}
	return result, nil
}

// Confirm asks a yes/no question.
func (h *Huh) Confirm(ctx context.Context, title, description string, def bool) (bool, error) {
	result := def
	c := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&result)
	if err := h.run(ctx, c); err != nil {
		return false, err
	}
	return result, nil
}

func (h *Huh) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(huhTheme(h.cfg.Theme)).
		WithAccessible(h.cfg.Accessible)
	if h.cfg.Input != nil {
		form = form.WithInput(h.cfg.Input)
	}
	if h.cfg.Output != nil {
		form = form.WithOutput(h.cfg.Output)
	}
	return mapAbort(form.RunWithContext(ctx))
}

// mapAbort converts huh's abort error into ErrCancelled.
func mapAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCancelled
	}
	return err
}

// huhTheme converts a Theme to a huh.Theme.
func huhTheme(t Theme) *huh.Theme {
	switch t {
	case ThemeCharm:
		return huh.ThemeCharm()
	case ThemeDracula:
		return huh.ThemeDracula()
	case ThemeCatppuccin:
		return huh.ThemeCatppuccin()
	case ThemeBase16:
		return huh.ThemeBase16()
	default:
		return huh.ThemeBase()
	}
}

var _ Prompter = (*Huh)(nil)
