package indicator

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"
)

// TerminalRenderer prints the status as a box whose border takes the
// status color, only when the status changed.
type TerminalRenderer struct {
	out  io.Writer
	last Status
}

func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{out: out}
}

func (r *TerminalRenderer) Name() string {
	return "terminal"
}

func (r *TerminalRenderer) Render(status Status, _ *html.Node) error {
	if status == r.last {
		return nil
	}
	r.last = status
	_, err := fmt.Fprintln(r.out, FormatStatus(status))
	return err
}

// FormatStatus renders a status the way the terminal renderer prints it.
func FormatStatus(status Status) string {
	style := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(string(status.Color)))
	return style.Render(status.Text)
}

// SnapshotRenderer writes the decorated page document to a file so the
// widget can be looked at in a browser.
type SnapshotRenderer struct {
	path string
}

func NewSnapshotRenderer(path string) SnapshotRenderer {
	return SnapshotRenderer{path: path}
}

func (r SnapshotRenderer) Name() string {
	return "snapshot"
}

func (r SnapshotRenderer) Render(_ Status, doc *html.Node) error {
	if doc == nil {
		return nil
	}

	var buffer bytes.Buffer
	err := html.Render(&buffer, doc)
	if err != nil {
		return fmt.Errorf("render snapshot: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(r.path), 0o755)
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	err = os.WriteFile(tmp, buffer.Bytes(), 0o644)
	if err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
