package punch

import (
	"fmt"
	"strings"
)

// values a page renders in place of a missing punch, compared after trimming
var nullValues = map[string]struct{}{
	"--":   {},
	"-":    {},
	"":     {},
	"null": {},
}

// NormalizeCell trims a raw cell value and maps the placeholder values
// ("--", "-", "", "null") to the empty string, which represents null.
func NormalizeCell(raw string) string {
	value := strings.TrimSpace(raw)
	if _, isNull := nullValues[value]; isNull {
		return ""
	}
	return value
}

// State is the punch state displayed by the attendance page. All values are
// opaque display strings, the empty string means the value is absent.
type State struct {
	In     string
	Out    string
	Worked string
}

// NewState normalizes raw cell values into a State. The in-time anchors the
// record: when it is absent the returned state is empty and ok is false,
// regardless of what the out and worked cells contain.
func NewState(in, out, worked string) (state State, ok bool) {
	in = NormalizeCell(in)
	if in == "" {
		return State{}, false
	}
	return State{
		In:     in,
		Out:    NormalizeCell(out),
		Worked: NormalizeCell(worked),
	}, true
}

// PunchedOut reports whether the day has a last-out time.
func (s State) PunchedOut() bool {
	return s.In != "" && s.Out != ""
}

// Summary renders the state the way the indicator shows it,
// ex. "In: 10:00 AM | Out: 6:00 PM | Worked: 8h".
func (s State) Summary() string {
	parts := []string{fmt.Sprintf("In: %s", s.In)}
	if s.Out != "" {
		parts = append(parts, fmt.Sprintf("Out: %s", s.Out))
	}
	if s.Worked != "" {
		parts = append(parts, fmt.Sprintf("Worked: %s", s.Worked))
	}
	return strings.Join(parts, " | ")
}

// PageContext is the location of the page a snapshot was taken from.
type PageContext struct {
	URL   string
	Title string
}
