package indicator

import (
	"punchsync/internal/punch"
)

// Color is a css color used as the accent of the widget.
type Color string

const (
	// searching or idle
	Orange Color = "#FFA500"
	// error or logged out
	Red Color = "#FF4444"
	// synced
	Green Color = "#00C851"
	// punched out for the day
	Amber Color = "#FFBB33"
)

type Status struct {
	Text  string
	Color Color
}

var (
	Initializing   = Status{Text: "Tracker: Initializing...", Color: Orange}
	PleaseLogin    = Status{Text: "Tracker: Please Login", Color: Red}
	NotOnPage      = Status{Text: "Tracker: Go to 'Attendance'", Color: Orange}
	Searching      = Status{Text: "Tracker: Searching Table...", Color: Orange}
	DeliveryFailed = Status{Text: "Tracker: App Error (Check Receiver)", Color: Red}
)

// ForIntent is what the widget says about an intent before (or without) it
// being delivered.
func ForIntent(intent punch.Intent) Status {
	switch intent.Kind {
	case punch.KindUnknown:
		return Initializing
	case punch.KindLoggedOut:
		return PleaseLogin
	case punch.KindLoggedInNoData:
		if intent.Reason == punch.ReasonNotOnAttendance {
			return NotOnPage
		}
		return Searching
	default:
		return Status{Text: "Tracker: Syncing " + intent.State.In, Color: Orange}
	}
}

// Delivered is what the widget says after the receiver accepted an intent.
func Delivered(intent punch.Intent) Status {
	if !intent.HasData() {
		return ForIntent(intent)
	}
	if intent.State.PunchedOut() {
		return Status{Text: intent.State.Summary(), Color: Amber}
	}
	return Status{Text: intent.State.Summary(), Color: Green}
}
