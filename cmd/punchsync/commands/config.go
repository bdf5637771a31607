package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"punchsync/internal/components/telemetry"
	"punchsync/internal/deliver"
	"punchsync/internal/extract"
	"punchsync/internal/page"
	"punchsync/internal/tracker"
	"punchsync/lib/restyutil"
	"time"
)

type PageConfig struct {
	// Source is "http" (fetch Url) or "file" (watch File).
	Source           string            `json:"source"`
	Url              string            `json:"url"`
	File             string            `json:"file"`
	Cookie           string            `json:"cookie"`
	Headers          map[string]string `json:"headers"`
	CloudflareBypass bool              `json:"cloudflare_bypass"`
}

type ReceiverConfig struct {
	BaseUrl     string `json:"base_url"`
	LegacyQuery bool   `json:"legacy_query"`
	Timeout     string `json:"timeout"`
	// Listen is the address the receive command listens on.
	Listen string `json:"listen"`
}

type TrackerConfig struct {
	Interval          string `json:"interval"`
	NullConfirmations int    `json:"null_confirmations"`
	TextFallback      bool   `json:"text_fallback"`
}

type IndicatorConfig struct {
	DisableTerminal bool   `json:"disable_terminal"`
	SnapshotPath    string `json:"snapshot_path"`
}

type StateConfig struct {
	Database        string `json:"database"`
	SessionTtlHours int    `json:"session_ttl_hours"`
}

type Config struct {
	Page      PageConfig      `json:"page"`
	Receiver  ReceiverConfig  `json:"receiver"`
	Tracker   TrackerConfig   `json:"tracker"`
	Indicator IndicatorConfig `json:"indicator"`
	State     StateConfig     `json:"state"`
	LogFile   string          `json:"log_file"`
}

func defaultConfig() Config {
	database := "punchsync.db"
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		database = filepath.Join(cacheDir, "punchsync", "state.db")
	}

	return Config{
		Page: PageConfig{
			Source: "http",
		},
		Receiver: ReceiverConfig{
			BaseUrl: deliver.DefaultBaseUrl,
			Timeout: deliver.DefaultTimeout.String(),
			Listen:  "127.0.0.1:12345",
		},
		Tracker: TrackerConfig{
			Interval:          tracker.DefaultInterval.String(),
			NullConfirmations: 1,
		},
		State: StateConfig{
			Database:        database,
			SessionTtlHours: int(tracker.DefaultSessionTTL / time.Hour),
		},
	}
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", name, value)
	}
	return d, nil
}

func (c Config) interval() (time.Duration, error) {
	return parseDuration("tracker.interval", c.Tracker.Interval)
}

func (c Config) receiverTimeout() (time.Duration, error) {
	return parseDuration("receiver.timeout", c.Receiver.Timeout)
}

func (c Config) sessionTTL() time.Duration {
	return time.Duration(c.State.SessionTtlHours) * time.Hour
}

// pageUrl is the url that identifies the tracked site.
func (c Config) pageUrl() string {
	return c.Page.Url
}

func (c Config) newSource(dump restyutil.InstrumentOutput) (page.Source, error) {
	switch c.Page.Source {
	case "http":
		if c.Page.Url == "" {
			return nil, fmt.Errorf("page.url is required for the http page source")
		}
		return page.NewHTTPSource(page.HTTPOptions{
			Url:              c.Page.Url,
			Cookie:           c.Page.Cookie,
			Headers:          c.Page.Headers,
			CloudflareBypass: c.Page.CloudflareBypass,
			Dump:             dump,
		})
	case "file":
		if c.Page.File == "" {
			return nil, fmt.Errorf("page.file is required for the file page source")
		}
		return page.NewFileSource(c.Page.File, c.Page.Url)
	default:
		return nil, fmt.Errorf("unknown page.source %q (expected http or file)", c.Page.Source)
	}
}

func (c Config) newDeliverer(tel telemetry.API, dump restyutil.InstrumentOutput) (*deliver.Deliverer, error) {
	timeout, err := c.receiverTimeout()
	if err != nil {
		return nil, err
	}
	return deliver.New(deliver.Options{
		BaseUrl:     c.Receiver.BaseUrl,
		Timeout:     timeout,
		LegacyQuery: c.Receiver.LegacyQuery,
		Tel:         tel,
		Dump:        dump,
	})
}

func (c Config) newExtractor(tel telemetry.API) extract.Extractor {
	options := []extract.Option{extract.WithTelemetry(tel)}
	if c.Tracker.TextFallback {
		options = append(options, extract.WithTextFallback())
	}
	return extract.New(options...)
}
