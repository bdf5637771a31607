package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const attendancePage = `<html><head><title>HRMS - Attendance</title></head><body>
<table><thead><tr><th>FIRST IN</th></tr></thead><tbody><tr><td>10:05 AM</td></tr></tbody></table>
</body></html>`

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		url      string
		expected string
	}{
		{
			name:     "given url wins",
			body:     `<html><head><link rel="canonical" href="https://hrms.example/other"></head></html>`,
			url:      "https://hrms.example/attendance",
			expected: "https://hrms.example/attendance",
		},
		{
			name:     "canonical link",
			body:     `<html><head><link rel="canonical" href="https://hrms.example/attendance"></head></html>`,
			expected: "https://hrms.example/attendance",
		},
		{
			name:     "og url",
			body:     `<html><head><meta property="og:url" content="https://hrms.example/home"></head></html>`,
			expected: "https://hrms.example/home",
		},
		{
			name:     "no url",
			body:     `<html><head></head></html>`,
			expected: "",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			snapshot, err := Parse([]byte(test.body), test.url)
			require.NoError(t, err)
			require.Equal(t, test.expected, snapshot.Context.URL)
		})
	}

	_, err := Parse([]byte("  \n"), "")
	require.ErrorIs(t, err, ErrEmptyPage)
}

func TestHTTPSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/attendance", http.StatusFound)
	})
	mux.HandleFunc("/attendance", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("cookie"), "session=abc") || r.Header.Get("x-tenant") != "acme" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(attendancePage))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	source, err := NewHTTPSource(HTTPOptions{
		Url:     server.URL + "/",
		Cookie:  "session=abc",
		Headers: map[string]string{"x-tenant": "acme"},
	})
	require.NoError(t, err)
	defer source.Close()

	snapshot, err := source.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, server.URL+"/attendance", snapshot.Context.URL)
	require.Equal(t, "HRMS - Attendance", snapshot.Context.Title)
	require.Equal(t, 1, snapshot.Doc.Find("th").Length())

	// every snapshot is parsed on its own
	next, err := source.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotSame(t, snapshot.Doc, next.Doc)
}

func TestHTTPSourceErrors(t *testing.T) {
	_, err := NewHTTPSource(HTTPOptions{Url: "file:///tmp/page.html"})
	require.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source, err := NewHTTPSource(HTTPOptions{Url: server.URL})
	require.NoError(t, err)
	_, err = source.Snapshot(context.Background())
	require.Error(t, err)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attendance.html")
	require.NoError(t, os.WriteFile(path, []byte(attendancePage), 0o644))

	source, err := NewFileSource(path, "https://hrms.example/attendance")
	require.NoError(t, err)
	defer source.Close()

	snapshot, err := source.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://hrms.example/attendance", snapshot.Context.URL)
	require.Equal(t, "HRMS - Attendance", snapshot.Context.Title)

	err = os.WriteFile(path, []byte(`<html><head><title>Login</title></head><body></body></html>`), 0o644)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snapshot, err := source.Snapshot(context.Background())
		return err == nil && snapshot.Context.Title == "Login"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFileSourceMissingFile(t *testing.T) {
	source, err := NewFileSource(filepath.Join(t.TempDir(), "missing.html"), "")
	require.NoError(t, err)
	defer source.Close()

	_, err = source.Snapshot(context.Background())
	require.Error(t, err)
}
