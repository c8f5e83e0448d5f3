// SPDX-License-Identifier: MPL-2.0

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/pveprov/pveprov/internal/pve"
)

// render is the markdown renderer; replaced in tests.
var render = glamour.Render

// Summary is what the user needs to reach the deployed application.
type Summary struct {
	ID         pve.ContainerID
	Hostname   string
	Address    string
	Resolved   bool
	App        string
	Port       int
	InstallDir string
	// Password is only set when it was generated for this run.
	Password string
	Skipped  []string
	Warnings []string
}

// URL returns the application URL.
func (s Summary) URL() string {
	return fmt.Sprintf("http://%s:%d", s.Address, s.Port)
}

// Markdown renders the summary as markdown.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s is ready\n\n", s.App)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Container | `%s` |\n", s.ID)
	fmt.Fprintf(&b, "| Hostname | `%s` |\n", s.Hostname)
	fmt.Fprintf(&b, "| Address | `%s` |\n", s.Address)
	if s.Password != "" {
		fmt.Fprintf(&b, "| Root password | `%s` |\n", s.Password)
	}
	fmt.Fprintf(&b, "\nOpen **%s** in a browser.\n", s.URL())
	if !s.Resolved {
		fmt.Fprintf(&b, "\nThe address could not be determined; find it with `pct exec %s -- ip -4 addr show`.\n", s.ID)
	}
	if s.Password != "" {
		b.WriteString("\nThe root password was generated for this run and is not stored anywhere. Change it with `passwd` inside the container.\n")
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, "\nAlready applied, skipped: %s.\n", strings.Join(s.Skipped, ", "))
	}

	b.WriteString("\n## Next steps\n\n")
	fmt.Fprintf(&b, "- Shell into the container: `pct enter %s`\n", s.ID)
	fmt.Fprintf(&b, "- Follow the logs: `cd %s && docker compose logs -f`\n", s.InstallDir)
	fmt.Fprintf(&b, "- Update later: `cd %s && docker compose pull && docker compose up -d`\n", s.InstallDir)

	if len(s.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// Write renders the summary to w with the given glamour style ("auto",
// "dark", "light" or "notty"). A rendering failure falls back to the raw
// markdown.
func (s Summary) Write(w io.Writer, style string) error {
	md := s.Markdown()
	out, err := render(md, style)
	if err != nil {
		out = md
	}
	_, err = io.WriteString(w, out)
	return err
}
