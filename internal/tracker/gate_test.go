package tracker

import (
	"punchsync/internal/punch"
	"testing"

	"github.com/stretchr/testify/require"
)

func dataIntent(in, date string) punch.Intent {
	intent := punch.LoggedInWithData(punch.State{In: in})
	intent.Date = date
	return intent
}

func TestGateSkipsIdenticalIntents(t *testing.T) {
	gate := NewGate(1)

	require.True(t, gate.Admit(dataIntent("10:05 AM", "2024-05-06")))
	require.False(t, gate.Admit(dataIntent("10:05 AM", "2024-05-06")))
	require.Equal(t, dataIntent("10:05 AM", "2024-05-06").Key(), gate.LastDelivered())

	// the next day is a different report even with the same in-time
	require.True(t, gate.Admit(dataIntent("10:05 AM", "2024-05-07")))
}

func TestGateAdmitsEveryChange(t *testing.T) {
	gate := NewGate(1)

	sequence := []struct {
		intent   punch.Intent
		admitted bool
	}{
		{punch.LoggedInNoData(punch.ReasonSearching), true},
		{punch.LoggedInNoData(punch.ReasonSearching), false},
		{dataIntent("10:05 AM", "2024-05-06"), true},
		// into null
		{punch.LoggedInNoData(punch.ReasonSearching), true},
		// out of null
		{dataIntent("10:05 AM", "2024-05-06"), true},
		{punch.LoggedOut(), true},
		{punch.LoggedOut(), false},
		{punch.LoggedInNoData(punch.ReasonNotOnAttendance), true},
		{punch.LoggedInNoData(punch.ReasonSearching), true},
	}

	for i, step := range sequence {
		require.Equal(t, step.admitted, gate.Admit(step.intent), "step %d", i)
	}
}

func TestGateNullConfirmations(t *testing.T) {
	gate := NewGate(3)
	noData := punch.LoggedInNoData(punch.ReasonSearching)

	require.True(t, gate.Admit(dataIntent("10:05 AM", "2024-05-06")))

	// a blank frame followed by the same data is swallowed
	require.False(t, gate.Admit(noData))
	require.False(t, gate.Admit(dataIntent("10:05 AM", "2024-05-06")))

	// the counter starts over after data showed up again
	require.False(t, gate.Admit(noData))
	require.False(t, gate.Admit(noData))
	require.True(t, gate.Admit(noData))
	require.False(t, gate.Admit(noData))

	// logging out is never held back
	require.True(t, gate.Admit(dataIntent("10:05 AM", "2024-05-06")))
	require.True(t, gate.Admit(punch.LoggedOut()))
}
