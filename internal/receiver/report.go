package receiver

import (
	"net/url"
	"punchsync/internal/components/chrono"
	"strings"
	"time"
)

// Phase is what a report means for the person's working day.
type Phase int

const (
	PhaseLoggedOut Phase = iota
	// logged in, no punch in yet (or none visible)
	PhaseAbsent
	PhaseWorking
	PhasePunchedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseLoggedOut:
		return "logged_out"
	case PhaseAbsent:
		return "absent"
	case PhaseWorking:
		return "working"
	case PhasePunchedOut:
		return "punched_out"
	default:
		return "unknown"
	}
}

// values that mean "no punch" on the receiving side, compared lowercase
var invalidValues = map[string]struct{}{
	"":          {},
	"null":      {},
	"none":      {},
	"-":         {},
	"--":        {},
	"00:00":     {},
	"00:00:00":  {},
	"undefined": {},
	"false":     {},
}

func isValid(value string) bool {
	_, invalid := invalidValues[strings.ToLower(strings.TrimSpace(value))]
	return !invalid
}

// Report is a single /sync request.
type Report struct {
	Status   string
	PunchIn  string
	PunchOut string
	Worked   string
	Date     string

	Phase      Phase
	ReceivedAt time.Time
}

// ParseReport reads a /sync query, both the full form and the legacy
// (punch_in, date) form.
func ParseReport(query url.Values, receivedAt time.Time) Report {
	report := Report{
		Status:     query.Get("status"),
		PunchIn:    query.Get("punch_in"),
		PunchOut:   query.Get("punch_out"),
		Worked:     query.Get("worked"),
		Date:       query.Get("date"),
		ReceivedAt: receivedAt,
	}
	report.Phase = Interpret(report)
	return report
}

// Interpret decides the phase of a report. A last-out time ends the day even
// when the in-time is missing from the report.
func Interpret(report Report) Phase {
	if report.Status == "logged_out" {
		return PhaseLoggedOut
	}
	punchedIn := isValid(report.PunchIn)
	punchedOut := isValid(report.PunchOut)
	switch {
	case punchedIn && !punchedOut:
		return PhaseWorking
	case punchedOut:
		return PhasePunchedOut
	default:
		return PhaseAbsent
	}
}

var clockLayouts = []string{"3:04 PM", "3:04:05 PM", "3:04PM", "3:04:05PM", "15:04", "15:04:05"}

// punchInAt places the punch-in time on the report's day (or the day of now
// for legacy reports without a date) in now's location.
func (r Report) punchInAt(now time.Time) (time.Time, bool) {
	value := strings.ToUpper(strings.TrimSpace(r.PunchIn))
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if r.Date != "" {
		parsed, err := time.ParseInLocation(chrono.DateLayout, r.Date, now.Location())
		if err != nil {
			return time.Time{}, false
		}
		day = parsed
	}
	for _, layout := range clockLayouts {
		clock, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return day.Add(time.Duration(clock.Hour())*time.Hour +
			time.Duration(clock.Minute())*time.Minute +
			time.Duration(clock.Second())*time.Second), true
	}
	return time.Time{}, false
}

// WorkTime is how long the person has worked today. The worked value shown
// by the attendance page wins, while working without one the time since
// punch-in is used. ok is false when neither is known.
func (r Report) WorkTime(now time.Time) (time.Duration, bool) {
	if isValid(r.Worked) {
		worked, err := time.ParseDuration(strings.ReplaceAll(r.Worked, " ", ""))
		if err == nil && worked > 0 {
			return worked, true
		}
	}
	if r.Phase != PhaseWorking {
		return 0, false
	}
	punchIn, ok := r.punchInAt(now)
	if !ok {
		return 0, false
	}
	return max(0, now.Sub(punchIn)), true
}
