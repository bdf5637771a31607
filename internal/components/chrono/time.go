package chrono

import (
	"time"
)

// DateLayout formats the local calendar day sent along with a punch state.
const DateLayout = "2006-01-02"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the location the tracker runs in.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	// Location defaults to time.Local when nil.
	Location *time.Location
}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	if s.Location == nil {
		return time.Now().In(time.Local)
	}
	return time.Now().In(s.Location)
}

// FixedTime always returns the same instant, used in tests.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At
}

// Today returns the local calendar day of t formatted as YYYY-MM-DD.
func Today(api TimeAPI) string {
	return api.Now().Format(DateLayout)
}
