package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Justype/modules/pkg/catalog"
)

var (
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// printPackages writes one "name: description" line per package with the
// names padded to a common width.
func printPackages(w io.Writer, packages []catalog.Descriptor) {
	width := 0
	for _, d := range packages {
		width = max(width, len(d.Name))
	}
	for _, d := range packages {
		pad := strings.Repeat(" ", width-len(d.Name))
		fmt.Fprintf(w, "%s%s: %s\n", nameStyle.Render(d.Name), pad, d.Description)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// promptConfirmer asks on out and reads the answer from in. Only "y" and
// "yes" approve.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm implements engine.Confirmer.
func (p *promptConfirmer) Confirm(prompt string, items []string) (bool, error) {
	fmt.Fprintln(p.out, prompt)
	for _, item := range items {
		fmt.Fprintf(p.out, "  %s\n", nameStyle.Render(item))
	}
	fmt.Fprint(p.out, "Proceed? [y/N]: ")

	answer, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
