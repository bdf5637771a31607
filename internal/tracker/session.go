package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"punchsync/internal/components/chrono"
	"punchsync/internal/components/telemetry"
	"punchsync/internal/deliver"
	"punchsync/internal/indicator"
	"punchsync/internal/page"
	"punchsync/internal/punch"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("punchsync/tracker")
	meter  = otel.Meter("punchsync/tracker")
)

const (
	report_snapshot  = "session.snapshot"
	report_extract   = "session.extract"
	report_notice    = "session.notice"
	report_delivered = "session.delivered"
)

const (
	DefaultInterval   = 2 * time.Second
	DefaultSessionTTL = 12 * time.Hour

	noticeFlag = "install_notice_shown"
	// InstallNotice is shown once per browsing session.
	InstallNotice = "Tracker is INSTALLED and ACTIVE.\nLook for the status box in the bottom right corner of the page."
)

type Extractor interface {
	Extract(ctx context.Context, doc *goquery.Document) (punch.State, bool)
}

type Deliverer interface {
	Sync(ctx context.Context, intent punch.Intent) error
	Heartbeat(ctx context.Context) error
}

// FlagStore keeps flags for the length of a browsing session.
type FlagStore interface {
	Once(ctx context.Context, session, name string, ttl time.Duration) (bool, error)
}

type Options struct {
	Source    page.Source
	Extractor Extractor
	Deliverer Deliverer
	// Gate defaults to NewGate(1).
	Gate *Gate
	// Indicator defaults to an indicator without renderers.
	Indicator *indicator.Indicator
	Tel       telemetry.API
	Time      chrono.TimeAPI

	// Flags, when set, shows InstallNotice on Notice once per session.
	Flags      FlagStore
	SessionKey string
	// SessionTTL defaults to DefaultSessionTTL.
	SessionTTL time.Duration
	Notice     io.Writer
}

// Session holds everything one tracker needs between ticks: the change gate,
// the outcome of the last call to the receiver and the indicator.
type Session struct {
	source    page.Source
	extractor Extractor
	deliverer Deliverer
	gate      *Gate
	indicator *indicator.Indicator
	tel       telemetry.API
	time      chrono.TimeAPI

	flags      FlagStore
	sessionKey string
	sessionTTL time.Duration
	notice     io.Writer

	deliveries metric.Int64Counter
	skips      metric.Int64Counter
	probes     metric.Int64Counter

	mutex      sync.Mutex
	outcome    deliver.Outcome
	lastIntent punch.Intent
	delivered  int64

	probing  atomic.Bool
	inflight sync.WaitGroup
}

func NewSession(opts Options) (*Session, error) {
	if opts.Source == nil || opts.Extractor == nil || opts.Deliverer == nil {
		return nil, errors.New("session needs a page source, an extractor and a deliverer")
	}

	tel := opts.Tel
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	clock := opts.Time
	if clock == nil {
		clock = chrono.NewStandardTime()
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewGate(1)
	}
	ind := opts.Indicator
	if ind == nil {
		ind = indicator.New(tel)
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	deliveries, err := meter.Int64Counter(
		"tracker.deliveries",
		metric.WithDescription("intents handed to the deliverer"),
	)
	if err != nil {
		return nil, err
	}
	skips, err := meter.Int64Counter(
		"tracker.skips",
		metric.WithDescription("ticks whose intent was already delivered"),
	)
	if err != nil {
		return nil, err
	}
	probes, err := meter.Int64Counter(
		"tracker.probes",
		metric.WithDescription("liveness probes sent to the receiver"),
	)
	if err != nil {
		return nil, err
	}

	return &Session{
		source:     opts.Source,
		extractor:  opts.Extractor,
		deliverer:  opts.Deliverer,
		gate:       gate,
		indicator:  ind,
		tel:        telemetry.NewScopedAPI("tracker", tel),
		time:       clock,
		flags:      opts.Flags,
		sessionKey: opts.SessionKey,
		sessionTTL: ttl,
		notice:     opts.Notice,
		deliveries: deliveries,
		skips:      skips,
		probes:     probes,
		outcome:    deliver.Disconnected,
	}, nil
}

func (s *Session) Outcome() deliver.Outcome {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.outcome
}

// setOutcome returns the outcome it replaced.
func (s *Session) setOutcome(outcome deliver.Outcome) deliver.Outcome {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	previous := s.outcome
	s.outcome = outcome
	return previous
}

// LastIntent is the intent of the last tick that could read the page.
func (s *Session) LastIntent() punch.Intent {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastIntent
}

func (s *Session) setLastIntent(intent punch.Intent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastIntent = intent
}

func (s *Session) Indicator() *indicator.Indicator {
	return s.indicator
}

// TickResult tells what a single tick did.
type TickResult struct {
	// PageErr is set when no snapshot could be taken, Intent is then the
	// zero Intent (punch.KindUnknown).
	PageErr   error
	Intent    punch.Intent
	Delivered bool
	Probed    bool
}

// Tick runs the pipeline once. It never fails, anything that goes wrong is
// reported and the next tick starts over.
func (s *Session) Tick(ctx context.Context) TickResult {
	ctx, span := tracer.Start(ctx, "Tick")
	defer span.End()

	var result TickResult

	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		result.PageErr = err
		s.tel.ReportWarning(report_snapshot, err)
	} else {
		state, found := s.extract(ctx, snapshot)
		// the snapshot is handed to the indicator once extraction is done
		// reading it, deliveries write into it from other goroutines
		s.indicator.Attach(snapshot.Root())

		intent := Classify(state, found, snapshot.Context)
		if intent.HasData() {
			intent.Date = chrono.Today(s.time)
		}
		result.Intent = intent
		s.setLastIntent(intent)
		span.SetAttributes(attribute.String("intent", intent.Kind.String()))

		if s.gate.Admit(intent) {
			s.indicator.Update(indicator.ForIntent(intent))
			s.deliver(ctx, intent)
			result.Delivered = true
		} else {
			s.skips.Add(ctx, 1)
			// both no data reasons share a delivery, the indicator still
			// follows the reason unless it shows a receiver error
			if !intent.HasData() {
				s.indicator.UpdateUnless(indicator.DeliveryFailed, indicator.ForIntent(intent))
			}
		}
	}

	if !result.Intent.HasData() && !result.Delivered && s.Outcome() != deliver.Connected {
		result.Probed = s.probe(ctx)
	}
	return result
}

func (s *Session) extract(ctx context.Context, snapshot page.Snapshot) (state punch.State, found bool) {
	defer func() {
		r := recover()
		if r != nil {
			s.tel.ReportBroken(report_extract, fmt.Errorf("panic while extracting: %v", r), snapshot.Context.URL)
			state = punch.State{}
			found = false
		}
	}()
	return s.extractor.Extract(ctx, snapshot.Doc)
}

// deliver sends the intent without waiting for it, the callback is the only
// thing that sets the outcome and the delivered status.
func (s *Session) deliver(ctx context.Context, intent punch.Intent) {
	s.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", intent.Kind.String())))
	s.mutex.Lock()
	s.delivered++
	delivered := s.delivered
	s.mutex.Unlock()
	s.tel.ReportCount(report_delivered, delivered)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		err := s.deliverer.Sync(ctx, intent)
		s.setOutcome(deliver.OutcomeOf(err))
		if err != nil {
			s.indicator.Update(indicator.DeliveryFailed)
			return
		}
		s.indicator.Update(indicator.Delivered(intent))
	}()
}

// probe sends a heartbeat unless one is still in flight, it reports whether
// a heartbeat was sent. A heartbeat that reconnects the session clears a
// receiver error from the indicator.
func (s *Session) probe(ctx context.Context) bool {
	if !s.probing.CompareAndSwap(false, true) {
		return false
	}
	s.probes.Add(ctx, 1)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.probing.Store(false)

		err := s.deliverer.Heartbeat(ctx)
		outcome := deliver.OutcomeOf(err)
		previous := s.setOutcome(outcome)
		if previous != deliver.Connected && outcome == deliver.Connected {
			s.indicator.Replace(indicator.DeliveryFailed, indicator.ForIntent(s.LastIntent()))
		}
	}()
	return true
}

func (s *Session) showNotice(ctx context.Context) {
	if s.flags == nil || s.notice == nil {
		return
	}
	first, err := s.flags.Once(ctx, s.sessionKey, noticeFlag, s.sessionTTL)
	if err != nil {
		s.tel.ReportWarning(report_notice, err)
		return
	}
	if first {
		fmt.Fprintln(s.notice, InstallNotice)
	}
}

// Run shows the install notice (once per session), probes the receiver and
// then ticks every interval until ctx is done. In-flight deliveries are
// waited for before it returns.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.showNotice(ctx)
	s.probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)

		select {
		case <-ctx.Done():
			s.Wait()
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until every delivery and probe sent so far has finished.
func (s *Session) Wait() {
	s.inflight.Wait()
}
