package receiver

import (
	"net/http"
	"punchsync/internal/components/chrono"
	"punchsync/internal/components/telemetry"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	report_stale_report  = "receiver.stale-report"
	report_request       = "receiver.request"
	report_phase_changed = "receiver.phase-changed"
)

// Hooks are called after a request was handled, from the request's
// goroutine. Any of them may be nil.
type Hooks struct {
	OnReport func(report Report, previous Phase, changed bool)
	OnStart  func()
	OnStop   func()
}

// Receiver is the local process the tracker reports to. It only keeps the
// latest report in memory.
type Receiver struct {
	tel   telemetry.API
	time  chrono.TimeAPI
	hooks Hooks

	mutex  sync.Mutex
	latest *Report
	seen   time.Time
}

func New(tel telemetry.API, clock chrono.TimeAPI, hooks Hooks) *Receiver {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	if clock == nil {
		clock = chrono.NewStandardTime()
	}
	return &Receiver{
		tel:   telemetry.NewScopedAPI("receiver", tel),
		time:  clock,
		hooks: hooks,
	}
}

// Latest returns the last accepted report.
func (r *Receiver) Latest() (Report, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.latest == nil {
		return Report{}, false
	}
	return *r.latest, true
}

// WorkTime is the work time of the latest report as of now.
func (r *Receiver) WorkTime() (time.Duration, bool) {
	report, ok := r.Latest()
	if !ok {
		return 0, false
	}
	return report.WorkTime(r.time.Now())
}

// LastSeen is when the tracker last reached the receiver, by sync or heartbeat.
func (r *Receiver) LastSeen() time.Time {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.seen
}

func (r *Receiver) touch() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.seen = r.time.Now()
}

func (r *Receiver) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.tel.ReportDebug(
			report_request,
			c.Request.Method,
			c.Request.URL.RequestURI(),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

// Handler returns the http handler serving /sync, /heartbeat, /start and
// /stop. Every origin is allowed since the tracker may run inside a page.
func (r *Receiver) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(r.logRequests())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/sync", r.handleSync)
	router.GET("/heartbeat", r.handleHeartbeat)
	router.GET("/start", func(c *gin.Context) {
		if r.hooks.OnStart != nil {
			r.hooks.OnStart()
		}
		c.Status(http.StatusOK)
	})
	router.GET("/stop", func(c *gin.Context) {
		if r.hooks.OnStop != nil {
			r.hooks.OnStop()
		}
		c.Status(http.StatusOK)
	})

	return router
}

func (r *Receiver) handleHeartbeat(c *gin.Context) {
	r.touch()
	c.String(http.StatusOK, "Alive")
}

func (r *Receiver) handleSync(c *gin.Context) {
	r.touch()

	now := r.time.Now()
	report := ParseReport(c.Request.URL.Query(), now)

	// a report for another day (an old tab left open) must not end or start
	// today's tracking
	today := now.Format(chrono.DateLayout)
	if report.Date != "" && report.Date != today {
		r.tel.ReportWarning(report_stale_report, report.Date, today)
		c.String(http.StatusOK, "Sync Received")
		return
	}

	r.mutex.Lock()
	previous := PhaseLoggedOut
	if r.latest != nil {
		previous = r.latest.Phase
	}
	changed := r.latest == nil || previous != report.Phase
	r.latest = &report
	r.mutex.Unlock()

	if changed {
		r.tel.ReportDebug(report_phase_changed, previous.String(), report.Phase.String(), report.PunchIn, report.PunchOut)
	}
	if r.hooks.OnReport != nil {
		r.hooks.OnReport(report, previous, changed)
	}
	c.String(http.StatusOK, "Sync Received")
}
