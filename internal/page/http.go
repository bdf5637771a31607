package page

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"punchsync/lib/restyutil"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

type HTTPOptions struct {
	Url string
	// Cookie is sent as is in the Cookie header, it carries the session of
	// the browser the user is logged in with.
	Cookie  string
	Headers map[string]string
	// CloudflareBypass wraps the transport with browser-like TLS and headers.
	CloudflareBypass bool
	Timeout          time.Duration
	Dump             restyutil.InstrumentOutput
}

// HTTPSource fetches the attendance page on every snapshot.
type HTTPSource struct {
	http *resty.Client
	url  string
}

func NewHTTPSource(opts HTTPOptions) (*HTTPSource, error) {
	parsed, err := url.Parse(opts.Url)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("page url %q must be http or https", opts.Url)
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", userAgent)
	if opts.Cookie != "" {
		client.SetHeader("cookie", opts.Cookie)
	}
	client.SetHeaders(opts.Headers)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)
	restyutil.InstrumentClient(client, otel.Tracer("punchsync/page/http"), opts.Dump)

	return &HTTPSource{http: client, url: opts.Url}, nil
}

func (s *HTTPSource) Snapshot(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "HTTPSource.Snapshot")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		Get(s.url)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch page: %w", err)
	}
	if res.IsError() {
		return Snapshot{}, fmt.Errorf("fetch page: unexpected status %s", res.Status())
	}

	finalUrl := s.url
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	span.SetAttributes(attribute.String("url", finalUrl))

	return Parse(res.Body(), finalUrl)
}

func (s *HTTPSource) Close() error {
	return nil
}
