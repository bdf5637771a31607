package indicator

import (
	"punchsync/internal/components/telemetry"
	"sync"

	"golang.org/x/net/html"
)

const report_render = "indicator.render"

// Renderer shows the status somewhere outside of the page document.
type Renderer interface {
	Name() string
	// Render is called whenever the status or the attached document changes,
	// doc may be nil when no page has been attached yet.
	Render(status Status, doc *html.Node) error
}

// Indicator keeps the latest status and re-asserts it into every page
// document it is attached to. It is safe for concurrent use, deliveries
// update it from their own goroutines.
type Indicator struct {
	tel       telemetry.API
	renderers []Renderer

	mutex  sync.Mutex
	status Status
	doc    *html.Node
}

func New(tel telemetry.API, renderers ...Renderer) *Indicator {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return &Indicator{
		tel:       telemetry.NewScopedAPI("indicator", tel),
		renderers: renderers,
		status:    Initializing,
	}
}

func (i *Indicator) render() {
	for _, r := range i.renderers {
		err := r.Render(i.status, i.doc)
		if err != nil {
			i.tel.ReportWarning(report_render, r.Name(), err)
		}
	}
}

// Attach makes doc the current page document, the widget is created in it
// (if the page removed it or never had it) and shows the latest status.
// The caller must not touch doc after handing it over.
func (i *Indicator) Attach(doc *html.Node) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if doc == nil {
		return
	}
	SetStatus(doc, i.status)
	if doc == i.doc {
		return
	}
	i.doc = doc
	i.render()
}

// Update sets the status, re-asserting it into the current document.
func (i *Indicator) Update(status Status) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.set(status)
}

// UpdateUnless sets the status unless the indicator currently shows keep.
func (i *Indicator) UpdateUnless(keep, status Status) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	if i.status == keep {
		return
	}
	i.set(status)
}

// Replace sets the status only while the indicator shows old, it reports
// whether it did.
func (i *Indicator) Replace(old, status Status) bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	if i.status != old {
		return false
	}
	i.set(status)
	return true
}

func (i *Indicator) set(status Status) {
	if status == i.status {
		return
	}
	i.status = status
	if i.doc != nil {
		SetStatus(i.doc, status)
	}
	i.render()
}

func (i *Indicator) Status() Status {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.status
}
