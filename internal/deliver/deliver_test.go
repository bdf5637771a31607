package deliver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"punchsync/internal/components/telemetry/telemetrytest"
	"punchsync/internal/punch"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func withData(in, out, worked, date string) punch.Intent {
	intent := punch.LoggedInWithData(punch.State{In: in, Out: out, Worked: worked})
	intent.Date = date
	return intent
}

func TestEncodeQuery(t *testing.T) {
	testCases := []struct {
		name     string
		intent   punch.Intent
		legacy   bool
		expected string
	}{
		{
			name:     "logged out",
			intent:   punch.LoggedOut(),
			expected: "status=logged_out",
		},
		{
			name:     "no data",
			intent:   punch.LoggedInNoData(punch.ReasonNotOnAttendance),
			expected: "status=logged_in&punch_in=null",
		},
		{
			name:     "searching is delivered like any other no data",
			intent:   punch.LoggedInNoData(punch.ReasonSearching),
			expected: "status=logged_in&punch_in=null",
		},
		{
			name:     "full state",
			intent:   withData("10:00 AM", "6:00 PM", "8h", "2024-05-06"),
			expected: "punch_in=10%3A00%20AM&punch_out=6%3A00%20PM&worked=8h&date=2024-05-06&status=logged_in",
		},
		{
			name:     "empty out and worked are kept",
			intent:   withData("10:05 AM", "", "7h 55m", "2024-05-06"),
			expected: "punch_in=10%3A05%20AM&punch_out=&worked=7h%2055m&date=2024-05-06&status=logged_in",
		},
		{
			name:     "legacy form",
			intent:   withData("10:05 AM", "6:00 PM", "8h", "2024-05-06"),
			legacy:   true,
			expected: "punch_in=10%3A05%20AM&date=2024-05-06",
		},
		{
			name:     "legacy form does not change logged out",
			intent:   punch.LoggedOut(),
			legacy:   true,
			expected: "status=logged_out",
		},
		{
			name:     "reserved characters",
			intent:   withData("9:00 AM&x=1", "", "", "2024-05-06"),
			expected: "punch_in=9%3A00%20AM%26x%3D1&punch_out=&worked=&date=2024-05-06&status=logged_in",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, EncodeQuery(test.intent, test.legacy))
		})
	}
}

type receiver struct {
	mutex    sync.Mutex
	requests []string
	status   int
}

func (r *receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.requests = append(r.requests, req.URL.Path+"?"+req.URL.RawQuery)
	w.WriteHeader(r.status)
}

func (r *receiver) Requests() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]string(nil), r.requests...)
}

func setup(t testing.TB, status int, legacy bool) (*Deliverer, *receiver, *telemetrytest.Recorder) {
	recv := &receiver{status: status}
	server := httptest.NewServer(recv)
	t.Cleanup(server.Close)

	rec := &telemetrytest.Recorder{}
	d, err := New(Options{BaseUrl: server.URL, LegacyQuery: legacy, Tel: rec})
	require.NoError(t, err)
	return d, recv, rec
}

func TestSync(t *testing.T) {
	d, recv, rec := setup(t, http.StatusOK, false)

	err := d.Sync(context.Background(), punch.LoggedOut())
	require.NoError(t, err)
	err = d.Sync(context.Background(), withData("10:05 AM", "", "7h 55m", "2024-05-06"))
	require.NoError(t, err)

	require.Equal(t, []string{
		"/sync?status=logged_out",
		"/sync?punch_in=10%3A05%20AM&punch_out=&worked=7h%2055m&date=2024-05-06&status=logged_in",
	}, recv.Requests())
	require.Len(t, rec.Find(telemetrytest.LevelDebug, report_delivered), 2)
}

func TestSyncLegacy(t *testing.T) {
	d, recv, _ := setup(t, http.StatusOK, true)

	err := d.Sync(context.Background(), withData("10:05 AM", "", "", "2024-05-06"))
	require.NoError(t, err)
	require.Equal(t, []string{"/sync?punch_in=10%3A05%20AM&date=2024-05-06"}, recv.Requests())
}

func TestSyncNon2xx(t *testing.T) {
	d, _, rec := setup(t, http.StatusInternalServerError, false)

	err := d.Sync(context.Background(), punch.LoggedOut())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Equal(t, Disconnected, OutcomeOf(err))
	require.Len(t, rec.Find(telemetrytest.LevelWarning, report_sync), 1)
}

func TestHeartbeat(t *testing.T) {
	d, recv, _ := setup(t, http.StatusNoContent, false)

	err := d.Heartbeat(context.Background())
	require.NoError(t, err)
	require.Equal(t, Connected, OutcomeOf(err))
	require.Equal(t, []string{"/heartbeat?"}, recv.Requests())
}

func TestUnreachableReceiver(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseUrl := server.URL
	server.Close()

	d, err := New(Options{BaseUrl: baseUrl, Tel: &telemetrytest.Recorder{}})
	require.NoError(t, err)

	require.Error(t, d.Heartbeat(context.Background()))
	require.Error(t, d.Sync(context.Background(), punch.LoggedOut()))
}

func TestNewRejectsBadBaseUrl(t *testing.T) {
	_, err := New(Options{BaseUrl: "ftp://127.0.0.1"})
	require.Error(t, err)

	d, err := New(Options{})
	require.NoError(t, err)
	require.Equal(t, DefaultBaseUrl, d.http.BaseURL)
}
