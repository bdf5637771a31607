package tracker

import (
	"punchsync/internal/punch"
	"regexp"
)

var (
	loginTitleRegex    = regexp.MustCompile(`(?i)login`)
	attendanceUrlRegex = regexp.MustCompile(`(?i)attendance`)
)

// Classify turns an extraction result and the page it came from into an
// intent. The title is checked first since a logout can happen on any url.
func Classify(state punch.State, found bool, page punch.PageContext) punch.Intent {
	if loginTitleRegex.MatchString(page.Title) {
		return punch.LoggedOut()
	}
	if !found && !attendanceUrlRegex.MatchString(page.URL) {
		return punch.LoggedInNoData(punch.ReasonNotOnAttendance)
	}
	if !found {
		return punch.LoggedInNoData(punch.ReasonSearching)
	}
	return punch.LoggedInWithData(state)
}
