package extract

import (
	"context"
	"punchsync/internal/components/telemetry"
	"punchsync/internal/punch"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("punchsync/extract")

const (
	report_strategy_match = "extractor.strategy-match"
	report_header_miss    = "extractor.header-miss"
)

// Strategy is a single way of finding the punch state in a page.
type Strategy interface {
	Name() string
	// Extract returns ok = false when the page does not contain what the
	// strategy looks for, that is the normal state of most pages.
	Extract(ctx context.Context, doc *goquery.Document, tel telemetry.API) (punch.State, bool)
}

// Extractor runs its strategies in order, the first one to find an in-time wins.
type Extractor struct {
	strategies []Strategy
	tel        telemetry.API
}

type Option func(e *Extractor)

// WithTextFallback adds the label proximity strategy after the table strategy.
func WithTextFallback() Option {
	return func(e *Extractor) {
		e.strategies = append(e.strategies, LabelProximity{})
	}
}

func WithTelemetry(tel telemetry.API) Option {
	return func(e *Extractor) {
		e.tel = tel
	}
}

// New creates an Extractor that only reads the attendance table unless
// WithTextFallback is given.
func New(options ...Option) Extractor {
	e := Extractor{
		strategies: []Strategy{HeaderTable{}},
		tel:        telemetry.SlogAPI{},
	}
	for _, opt := range options {
		opt(&e)
	}
	e.tel = telemetry.NewScopedAPI("extract", e.tel)
	return e
}

// Strategies returns the names of the strategies in the order they run.
func (e Extractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// Extract derives a punch state from the document, ok is false when no
// strategy found an in-time.
func (e Extractor) Extract(ctx context.Context, doc *goquery.Document) (punch.State, bool) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	if doc == nil {
		return punch.State{}, false
	}

	for _, strategy := range e.strategies {
		state, ok := strategy.Extract(ctx, doc, e.tel)
		if !ok {
			continue
		}
		span.SetAttributes(
			attribute.String("strategy", strategy.Name()),
			attribute.String("punch_in", state.In),
		)
		e.tel.ReportDebug(report_strategy_match, strategy.Name(), state.In, state.Out, state.Worked)
		return state, true
	}
	return punch.State{}, false
}
