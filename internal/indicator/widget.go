package indicator

import (
	"fmt"
	"punchsync/lib/htmlutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	ContainerID = "hrms-sync-container"
	BoxID       = "hrms-status-box"
)

const containerStyle = "position: fixed; bottom: 20px; right: 20px; z-index: 2147483647; " +
	"font-family: Segoe UI, Arial, sans-serif; pointer-events: none;"

const boxStyleTemplate = "background-color: #222; color: #fff; padding: 12px 20px; " +
	"border-radius: 8px; border: 2px solid %s; box-shadow: 0 4px 20px rgba(0,0,0,0.5); " +
	"font-size: 14px; font-weight: bold; display: flex; align-items: center; gap: 10px;"

func newDiv(id, style string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "id", Val: id},
			{Key: "style", Val: style},
		},
	}
}

// EnsureWidget returns the status box of the widget, creating the widget
// when the document does not have one. It is appended to body, or to the
// document element when there is no body yet. Returns nil when doc has no
// element to attach to.
func EnsureWidget(doc *html.Node) *html.Node {
	box := htmlutil.FindByID(doc, BoxID)
	if box != nil {
		return box
	}

	parent := htmlutil.FindElement(doc, atom.Body)
	if parent == nil {
		parent = htmlutil.FindElement(doc, atom.Html)
	}
	if parent == nil {
		return nil
	}

	container := htmlutil.FindByID(doc, ContainerID)
	if container == nil {
		container = newDiv(ContainerID, containerStyle)
		parent.AppendChild(container)
	}
	box = newDiv(BoxID, fmt.Sprintf(boxStyleTemplate, Orange))
	box.AppendChild(&html.Node{Type: html.TextNode, Data: Initializing.Text})
	container.AppendChild(box)
	return box
}

// SetStatus writes the status into the widget of doc, creating the widget
// if needed.
func SetStatus(doc *html.Node, status Status) {
	box := EnsureWidget(doc)
	if box == nil {
		return
	}
	htmlutil.SetText(box, status.Text)
	htmlutil.SetAttr(box, "style", fmt.Sprintf(boxStyleTemplate, status.Color))
}
