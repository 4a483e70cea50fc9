package signals_http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/time/rate"
)

// ServerOptions configures the echo instance.
type ServerOptions struct {
	// RateLimitRPS of zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	// OTelServiceName enables request tracing when set.
	OTelServiceName string
}

// NewServer builds the echo instance with middleware and all routes.
func NewServer(h *Handler, opts ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if opts.OTelServiceName != "" {
		e.Use(otelecho.Middleware(opts.OTelServiceName))
	}
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	if opts.RateLimitRPS > 0 {
		e.Use(NewRateLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst).Middleware())
	}

	e.GET("/", h.Root)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.GET("/signals", h.ListSignals)
	v1.GET("/signals/:id", h.GetSignal)
	v1.GET("/insights", h.ListInsights)
	v1.GET("/insights/:id", h.GetInsight)
	v1.GET("/sources/articles", h.ListArticles)
	v1.GET("/sources/articles/:id", h.GetArticle)
	v1.GET("/reports/weekly", h.WeeklyReport)
	v1.GET("/reports/top-terms", h.TopTerms)
	v1.GET("/reports/top-topics", h.TopTopics)
	v1.GET("/reports/notable", h.NotableStats)
	v1.POST("/jobs/enrich", h.RunEnrich)
	v1.POST("/jobs/aggregate", h.RunAggregate)

	return e
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     r,
		burst:    burst,
	}
}

func (rl *RateLimiter) limiterFor(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Drop clients idle for five minutes while we hold the lock.
	for key, l := range rl.limiters {
		if now.Sub(l.lastSeen) > 5*time.Minute {
			delete(rl.limiters, key)
		}
	}

	if l, ok := rl.limiters[ip]; ok {
		l.lastSeen = now
		return l.limiter
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[ip] = &clientLimiter{limiter: limiter, lastSeen: now}
	return limiter
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.limiterFor(c.RealIP(), time.Now()).Allow() {
				retryAfter := max(int(1.0/float64(rl.rate)), 1)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
