package deliver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"punchsync/internal/components/telemetry"
	"punchsync/internal/punch"
	"punchsync/lib/restyutil"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("punchsync/deliver")

const (
	report_sync      = "deliverer.sync"
	report_delivered = "deliverer.sync-delivered"
	report_heartbeat = "deliverer.heartbeat"
)

const (
	DefaultBaseUrl = "http://127.0.0.1:12345"
	DefaultTimeout = 10 * time.Second
)

// ErrUnexpectedStatus is returned when the receiver answers with anything but 2xx.
var ErrUnexpectedStatus = errors.New("unexpected receiver status")

// Outcome is the result of the last call that reached (or failed to reach)
// the receiver.
type Outcome int

const (
	Disconnected Outcome = iota
	Connected
)

func (o Outcome) String() string {
	if o == Connected {
		return "connected"
	}
	return "disconnected"
}

// OutcomeOf maps the error of Sync or Heartbeat to an Outcome.
func OutcomeOf(err error) Outcome {
	if err != nil {
		return Disconnected
	}
	return Connected
}

type Options struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// LegacyQuery sends the two parameter query form for intents with data.
	LegacyQuery bool
	Tel         telemetry.API
	// Dump, when not nil, receives raw http exchanges while debug logging is on.
	Dump restyutil.InstrumentOutput
}

// Deliverer sends intents and heartbeats to the local receiver.
type Deliverer struct {
	http   *resty.Client
	legacy bool
	tel    telemetry.API
}

func New(opts Options) (*Deliverer, error) {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse receiver base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("receiver base url %q must be http or https", baseUrl)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tel := opts.Tel
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(timeout)
	restyutil.InstrumentClient(client, otel.Tracer("punchsync/deliver/http"), opts.Dump)

	return &Deliverer{
		http:   client,
		legacy: opts.LegacyQuery,
		tel:    telemetry.NewScopedAPI("deliver", tel),
	}, nil
}

func (d *Deliverer) get(ctx context.Context, path string) error {
	res, err := d.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return err
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status())
	}
	return nil
}

// Sync reports an intent to the receiver.
func (d *Deliverer) Sync(ctx context.Context, intent punch.Intent) error {
	ctx, span := tracer.Start(ctx, "Sync")
	defer span.End()

	query := EncodeQuery(intent, d.legacy)
	span.SetAttributes(
		attribute.String("kind", intent.Kind.String()),
		attribute.String("query", query),
	)

	// the query is appended by hand, resty would reorder query params
	err := d.get(ctx, "/sync?"+query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportWarning(report_sync, err)
		return fmt.Errorf("sync %s: %w", intent.Kind, err)
	}
	d.tel.ReportDebug(report_delivered, query)
	return nil
}

// Heartbeat checks whether the receiver is alive.
func (d *Deliverer) Heartbeat(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Heartbeat")
	defer span.End()

	err := d.get(ctx, "/heartbeat")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportDebug(report_heartbeat, err)
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}
