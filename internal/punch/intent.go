package punch

import (
	"encoding/json"
)

// Kind is the classified meaning of a single observation.
type Kind int

const (
	// KindUnknown is the zero Kind, nothing was observed (the page could not
	// be read).
	KindUnknown Kind = iota
	KindLoggedOut
	KindLoggedInNoData
	KindLoggedInWithData
)

func (k Kind) String() string {
	switch k {
	case KindLoggedOut:
		return "logged_out"
	case KindLoggedInNoData:
		return "logged_in_no_data"
	case KindLoggedInWithData:
		return "logged_in_with_data"
	default:
		return "unknown"
	}
}

// Reason tells why a logged in observation has no data. It only changes
// what the indicator says, both reasons are delivered the same way.
type Reason int

const (
	ReasonNone Reason = iota
	// the user is logged in but looking at some other page
	ReasonNotOnAttendance
	// the attendance page is open but the table has not rendered (yet)
	ReasonSearching
)

func (r Reason) String() string {
	switch r {
	case ReasonNotOnAttendance:
		return "not_on_attendance"
	case ReasonSearching:
		return "searching"
	default:
		return "none"
	}
}

// Intent is exactly one of LoggedOut, LoggedInNoData or LoggedInWithData,
// the zero Intent is KindUnknown.
type Intent struct {
	Kind   Kind
	Reason Reason
	// State is only set for KindLoggedInWithData.
	State State
	// Date is the local calendar day (YYYY-MM-DD) the observation was made
	// on, only set for KindLoggedInWithData.
	Date string
}

func LoggedOut() Intent {
	return Intent{Kind: KindLoggedOut}
}

func LoggedInNoData(reason Reason) Intent {
	return Intent{Kind: KindLoggedInNoData, Reason: reason}
}

func LoggedInWithData(state State) Intent {
	return Intent{Kind: KindLoggedInWithData, State: state}
}

// HasData reports whether the intent carries a punch state.
func (i Intent) HasData() bool {
	return i.Kind == KindLoggedInWithData
}

type intentKey struct {
	Kind   string `json:"kind"`
	In     string `json:"in,omitempty"`
	Out    string `json:"out,omitempty"`
	Worked string `json:"worked,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Key serializes the fields of the intent that are delivered, two intents
// with the same key produce the same delivery. Reason is left out, it only
// changes what the indicator says.
func (i Intent) Key() string {
	key := intentKey{Kind: i.Kind.String()}
	if i.Kind == KindLoggedInWithData {
		key.In = i.State.In
		key.Out = i.State.Out
		key.Worked = i.State.Worked
		key.Date = i.Date
	}
	serialized, err := json.Marshal(key)
	if err != nil {
		// a struct of strings always marshals
		panic(err)
	}
	return string(serialized)
}
