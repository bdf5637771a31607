package extract

import (
	"context"
	"punchsync/internal/components/telemetry"
	"punchsync/internal/punch"
	"punchsync/lib/htmlutil"
	"punchsync/lib/textutil"
	"regexp"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	inHeaderRegex     = regexp.MustCompile(`(?i)FIRST IN|PUNCH IN|IN TIME`)
	outHeaderRegex    = regexp.MustCompile(`(?i)LAST OUT|PUNCH OUT|OUT TIME`)
	workedHeaderRegex = regexp.MustCompile(`(?i)WORKED|DURATION|TOTAL TIME`)

	labelRegex = regexp.MustCompile(`(?i)FIRST IN`)
	timeRegex  = regexp.MustCompile(`(?i)\d{1,2}:\d{2}(?::\d{2})?\s?(?:AM|PM)`)
)

// labels longer than this (in characters) are containers of the label,
// not the label
const maxLabelLength = 50

func firstMatching(sel *goquery.Selection, pattern *regexp.Regexp) *goquery.Selection {
	var found *goquery.Selection
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if pattern.MatchString(htmlutil.VisibleText(s)) {
			found = s
			return false
		}
		return true
	})
	return found
}

// HeaderTable reads the attendance table: the columns are located by their
// header text and the values are read from the first body row, which the
// attendance page uses for the current day.
type HeaderTable struct{}

func (HeaderTable) Name() string {
	return "header_table"
}

func (HeaderTable) Extract(ctx context.Context, doc *goquery.Document, tel telemetry.API) (punch.State, bool) {
	_, span := tracer.Start(ctx, "HeaderTable")
	defer span.End()

	headers := doc.Find("th")
	inHeader := firstMatching(headers, inHeaderRegex)
	if inHeader == nil {
		if headers.Length() > 0 {
			var texts []string
			headers.Each(func(_ int, s *goquery.Selection) {
				texts = append(texts, htmlutil.VisibleText(s))
			})
			closest, similarity := textutil.Closest("FIRST IN", texts)
			tel.ReportDebug(report_header_miss, len(texts), closest, similarity)
		}
		return punch.State{}, false
	}

	table := inHeader.Closest("table")
	if table.Length() == 0 {
		return punch.State{}, false
	}

	// headers of nested tables belong to those tables
	ownHeaders := table.Find("th").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest("table").IsSelection(table)
	})
	outHeader := firstMatching(ownHeaders, outHeaderRegex)
	workedHeader := firstMatching(ownHeaders, workedHeaderRegex)

	row := firstBodyRow(table, inHeader.Closest("tr"))
	if row == nil {
		return punch.State{}, false
	}
	cells := row.Children()

	in := cellText(cells, inHeader)
	out := ""
	if outHeader != nil && !outHeader.IsSelection(inHeader) {
		out = cellText(cells, outHeader)
	}
	worked := ""
	if workedHeader != nil && !workedHeader.IsSelection(inHeader) {
		worked = cellText(cells, workedHeader)
	}

	return punch.NewState(in, out, worked)
}

// firstBodyRow returns the first row of the table's own tbody that is not
// the header row, pages that omit thead get their header row parsed into
// tbody.
func firstBodyRow(table, headerRow *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	table.ChildrenFiltered("tbody").ChildrenFiltered("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if headerRow != nil && tr.IsSelection(headerRow) {
			return true
		}
		found = tr
		return false
	})
	return found
}

func cellText(cells, header *goquery.Selection) string {
	idx := header.Index()
	if idx < 0 || idx >= cells.Length() {
		return ""
	}
	return htmlutil.VisibleText(cells.Eq(idx))
}

// LabelProximity looks for a time next to a short "FIRST IN" label. It is
// less reliable than HeaderTable, it only ever reads the label itself and the
// element right after it and it only reports the in-time.
type LabelProximity struct{}

func (LabelProximity) Name() string {
	return "label_proximity"
}

func (LabelProximity) Extract(ctx context.Context, doc *goquery.Document, tel telemetry.API) (punch.State, bool) {
	_, span := tracer.Start(ctx, "LabelProximity")
	defer span.End()

	var label *goquery.Selection
	doc.Find("div, span, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := htmlutil.VisibleText(s)
		if utf8.RuneCountInString(text) < maxLabelLength && labelRegex.MatchString(text) {
			label = s
			return false
		}
		return true
	})
	if label == nil {
		return punch.State{}, false
	}

	match := timeRegex.FindString(htmlutil.VisibleText(label))
	if match == "" {
		next := label.Next()
		if next.Length() > 0 {
			match = timeRegex.FindString(htmlutil.VisibleText(next))
		}
	}
	return punch.NewState(match, "", "")
}
