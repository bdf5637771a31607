package tracker

import (
	"punchsync/internal/punch"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	data := punch.State{In: "10:05 AM", Worked: "7h 55m"}

	testCases := []struct {
		name     string
		state    punch.State
		found    bool
		page     punch.PageContext
		expected punch.Intent
	}{
		{
			name:     "login title",
			page:     punch.PageContext{URL: "https://hrms.example/login", Title: "Attendance - Login"},
			expected: punch.LoggedOut(),
		},
		{
			name:     "login title wins over table content",
			state:    data,
			found:    true,
			page:     punch.PageContext{URL: "https://hrms.example/attendance", Title: "LOGIN required"},
			expected: punch.LoggedOut(),
		},
		{
			name:     "other page",
			page:     punch.PageContext{URL: "https://hrms.example/home", Title: "Dashboard"},
			expected: punch.LoggedInNoData(punch.ReasonNotOnAttendance),
		},
		{
			name:     "attendance page without table",
			page:     punch.PageContext{URL: "https://hrms.example/Attendance", Title: "HRMS"},
			expected: punch.LoggedInNoData(punch.ReasonSearching),
		},
		{
			name:     "data on any page",
			state:    data,
			found:    true,
			page:     punch.PageContext{URL: "https://hrms.example/home", Title: "Dashboard"},
			expected: punch.LoggedInWithData(data),
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			intent := Classify(test.state, test.found, test.page)
			if diff := cmp.Diff(test.expected, intent); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
