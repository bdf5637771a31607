package indicator

import (
	"bytes"
	"os"
	"path/filepath"
	"punchsync/internal/components/telemetry/telemetrytest"
	"punchsync/internal/punch"
	"punchsync/lib/htmlutil"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parse(t testing.TB, page string) *html.Node {
	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func countByID(node *html.Node, id string) int {
	count := 0
	if node.Type == html.ElementNode && htmlutil.Attr(node, "id") == id {
		count++
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		count += countByID(child, id)
	}
	return count
}

func TestEnsureWidgetIsIdempotent(t *testing.T) {
	doc := parse(t, `<html><body><p>page</p></body></html>`)

	first := EnsureWidget(doc)
	second := EnsureWidget(doc)
	require.Same(t, first, second)
	require.Equal(t, 1, countByID(doc, ContainerID))
	require.Equal(t, 1, countByID(doc, BoxID))

	container := htmlutil.FindByID(doc, ContainerID)
	require.Equal(t, atom.Body, container.Parent.DataAtom)
	require.Contains(t, htmlutil.Attr(container, "style"), "pointer-events: none")
	require.Equal(t, Initializing.Text, htmlutil.GetText(first))
}

func TestEnsureWidgetWithoutBody(t *testing.T) {
	root := &html.Node{Type: html.DocumentNode}
	htmlElement := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	root.AppendChild(htmlElement)

	require.NotNil(t, EnsureWidget(root))
	require.Equal(t, atom.Html, htmlutil.FindByID(root, ContainerID).Parent.DataAtom)

	require.Nil(t, EnsureWidget(&html.Node{Type: html.DocumentNode}))
}

func TestEnsureWidgetRestoresRemovedBox(t *testing.T) {
	doc := parse(t, `<html><body></body></html>`)
	box := EnsureWidget(doc)
	box.Parent.RemoveChild(box)

	EnsureWidget(doc)
	require.Equal(t, 1, countByID(doc, ContainerID))
	require.Equal(t, 1, countByID(doc, BoxID))
}

func TestSetStatus(t *testing.T) {
	doc := parse(t, `<html><body></body></html>`)
	SetStatus(doc, PleaseLogin)
	SetStatus(doc, Status{Text: "In: 10:00 AM", Color: Green})

	box := htmlutil.FindByID(doc, BoxID)
	require.Equal(t, "In: 10:00 AM", htmlutil.GetText(box))
	require.Contains(t, htmlutil.Attr(box, "style"), "border: 2px solid #00C851")
	require.Equal(t, 1, countByID(doc, BoxID))
}

func TestStatusForIntent(t *testing.T) {
	testCases := []struct {
		intent    punch.Intent
		expected  Status
		delivered Status
	}{
		{
			intent:    punch.Intent{},
			expected:  Initializing,
			delivered: Initializing,
		},
		{
			intent:    punch.LoggedOut(),
			expected:  PleaseLogin,
			delivered: PleaseLogin,
		},
		{
			intent:    punch.LoggedInNoData(punch.ReasonNotOnAttendance),
			expected:  NotOnPage,
			delivered: NotOnPage,
		},
		{
			intent:    punch.LoggedInNoData(punch.ReasonSearching),
			expected:  Searching,
			delivered: Searching,
		},
		{
			intent:    punch.LoggedInWithData(punch.State{In: "10:00 AM"}),
			expected:  Status{Text: "Tracker: Syncing 10:00 AM", Color: Orange},
			delivered: Status{Text: "In: 10:00 AM", Color: Green},
		},
		{
			intent:    punch.LoggedInWithData(punch.State{In: "10:00 AM", Out: "6:00 PM", Worked: "8h"}),
			expected:  Status{Text: "Tracker: Syncing 10:00 AM", Color: Orange},
			delivered: Status{Text: "In: 10:00 AM | Out: 6:00 PM | Worked: 8h", Color: Amber},
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, ForIntent(test.intent))
		require.Equal(t, test.delivered, Delivered(test.intent))
	}
}

type countingRenderer struct {
	statuses []Status
}

func (r *countingRenderer) Name() string {
	return "counting"
}

func (r *countingRenderer) Render(status Status, _ *html.Node) error {
	r.statuses = append(r.statuses, status)
	return nil
}

func TestIndicator(t *testing.T) {
	renderer := &countingRenderer{}
	ind := New(&telemetrytest.Recorder{}, renderer)
	require.Equal(t, Initializing, ind.Status())

	// updates before any page is attached are kept
	ind.Update(Searching)

	doc := parse(t, `<html><body></body></html>`)
	ind.Attach(doc)
	require.Equal(t, Searching.Text, htmlutil.GetText(htmlutil.FindByID(doc, BoxID)))

	ind.Update(PleaseLogin)
	require.Equal(t, PleaseLogin.Text, htmlutil.GetText(htmlutil.FindByID(doc, BoxID)))

	// same status and same document do not render again
	ind.Update(PleaseLogin)
	ind.Attach(doc)

	require.Equal(t, []Status{Searching, Searching, PleaseLogin}, renderer.statuses)

	next := parse(t, `<html><body></body></html>`)
	ind.Attach(next)
	require.Equal(t, PleaseLogin.Text, htmlutil.GetText(htmlutil.FindByID(next, BoxID)))
	require.Len(t, renderer.statuses, 4)
}

func TestConditionalUpdates(t *testing.T) {
	renderer := &countingRenderer{}
	ind := New(&telemetrytest.Recorder{}, renderer)
	ind.Update(DeliveryFailed)

	// an error stays up until it is replaced on purpose
	ind.UpdateUnless(DeliveryFailed, NotOnPage)
	require.Equal(t, DeliveryFailed, ind.Status())

	require.False(t, ind.Replace(Searching, NotOnPage))
	require.Equal(t, DeliveryFailed, ind.Status())

	require.True(t, ind.Replace(DeliveryFailed, NotOnPage))
	require.Equal(t, NotOnPage, ind.Status())

	ind.UpdateUnless(DeliveryFailed, Searching)
	require.Equal(t, Searching, ind.Status())

	require.Equal(t, []Status{DeliveryFailed, NotOnPage, Searching}, renderer.statuses)
}

func TestTerminalRenderer(t *testing.T) {
	var out bytes.Buffer
	r := NewTerminalRenderer(&out)

	require.NoError(t, r.Render(Searching, nil))
	require.NoError(t, r.Render(Searching, nil))
	require.Equal(t, 1, strings.Count(out.String(), Searching.Text))

	require.NoError(t, r.Render(PleaseLogin, nil))
	require.Contains(t, out.String(), PleaseLogin.Text)
}

func TestSnapshotRenderer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "page.html")
	r := NewSnapshotRenderer(path)

	require.NoError(t, r.Render(Searching, nil))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	doc := parse(t, `<html><head><title>Attendance</title></head><body></body></html>`)
	SetStatus(doc, Searching)
	require.NoError(t, r.Render(Searching, doc))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(written), `id="hrms-status-box"`)
	require.Contains(t, string(written), Searching.Text)
}
