package fetcher

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sardanioss/resourcefetch/cache"
	"github.com/sardanioss/resourcefetch/cssinfer"
	"github.com/sardanioss/resourcefetch/dnswarm"
	"github.com/sardanioss/resourcefetch/infer"
	"github.com/sardanioss/resourcefetch/metrics"
	"github.com/sardanioss/resourcefetch/ratelimit"
	"github.com/sardanioss/resourcefetch/resource"
)

// Default capacity constants for the two inference caches and the
// per-host admission budget.
const (
	DefaultCssCacheCapacity  = 2000
	DefaultHtmlCacheCapacity = 2000
	DefaultMaxConnsPerHost   = 6
	DefaultInboxBuffer       = 64
)

// Config bundles everything a Scheduler and the inference helpers need
// that isn't carried per-call: the two process-wide caches, admission
// limits, and the ambient collaborators (logging, metrics, DNS warm-up,
// throttling). A Config is built once per process (or per protocol, if
// callers want isolated caches per protocol) and shared by every
// Scheduler constructed from it.
type Config struct {
	CssCache      *cache.CssContentCache
	InferredCache *cache.InferredResourcesCache

	MaxConnsPerHost int
	InboxBuffer     int

	HTMLParser HTMLParser
	CSSParser  CSSParser
	Transport  Transport

	Logger         *zap.Logger
	Metrics        *metrics.Collectors
	DNS            *dnswarm.Prefetcher
	Throttle       *ratelimit.PerHost
	ResourceFilter resource.Filter

	// OnUnbuildableRequest is called once per explicit resource whose
	// template fails to build, just before it is logged and dropped.
	OnUnbuildableRequest func(name string, err error)
}

// Option configures a Config, following the functional-options shape
// the teacher's client.NewClient(fingerprint, opts...) uses.
type Option func(*Config)

// WithMaxConnsPerHost overrides the per-host admission budget.
func WithMaxConnsPerHost(n int) Option {
	return func(c *Config) { c.MaxConnsPerHost = n }
}

// WithLogger attaches a *zap.Logger. A nil logger is replaced by
// zap.NewNop() so call sites never need a nil check.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics attaches Prometheus collectors for the one aggregate
// report a page load's scheduler emits on termination.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithDNSPrefetch attaches a dnswarm.Prefetcher, warmed on every
// dispatch; it issues at most one lookup per host per process.
func WithDNSPrefetch(p *dnswarm.Prefetcher) Option {
	return func(c *Config) { c.DNS = p }
}

// WithThrottle attaches a per-host rate limiter consulted for requests
// built with the throttled flag set.
func WithThrottle(t *ratelimit.PerHost) Option {
	return func(c *Config) { c.Throttle = t }
}

// WithResourceFilter installs the optional allow/deny predicate
// applied to every inferred resource before it is built into a
// request.
func WithResourceFilter(f resource.Filter) Option {
	return func(c *Config) { c.ResourceFilter = f }
}

// WithOnUnbuildableRequest installs the explicit-resource build-failure
// reporter.
func WithOnUnbuildableRequest(fn func(name string, err error)) Option {
	return func(c *Config) { c.OnUnbuildableRequest = fn }
}

// WithHTMLParser overrides the default infer.ParseHTML-backed parser.
func WithHTMLParser(p HTMLParser) Option {
	return func(c *Config) { c.HTMLParser = p }
}

// WithCSSParser overrides the default cssinfer.ExtractResources-backed
// parser.
func WithCSSParser(p CSSParser) Option {
	return func(c *Config) { c.CSSParser = p }
}

// WithTransport sets the Transport a Scheduler dispatches every
// sub-resource fetch through. There is no default: NewConfig cannot
// construct an httpclient.Client itself without httpclient importing
// fetcher back, so this option is required. A Config without it would
// otherwise only fail the first time a Scheduler tries to dispatch, so
// NewConfig checks for it up front and panics at construction instead.
func WithTransport(t Transport) Option {
	return func(c *Config) { c.Transport = t }
}

// NewConfig builds a Config from the two process-wide caches plus any
// options, defaulting MaxConnsPerHost/InboxBuffer and replacing a nil
// logger with a no-op one so every Scheduler method can log
// unconditionally. It panics if opts never supply a Transport, since a
// Config missing one can't dispatch a single sub-resource fetch.
func NewConfig(cssCache *cache.CssContentCache, inferredCache *cache.InferredResourcesCache, opts ...Option) Config {
	c := Config{
		CssCache:        cssCache,
		InferredCache:   inferredCache,
		MaxConnsPerHost: DefaultMaxConnsPerHost,
		InboxBuffer:     DefaultInboxBuffer,
		Logger:          zap.NewNop(),
		HTMLParser:      HTMLParserFunc(infer.ParseHTML),
		CSSParser:       CSSParserFunc(cssinfer.ExtractResources),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Transport == nil {
		panic("resourcefetch: fetcher.NewConfig requires fetcher.WithTransport")
	}
	return c
}

// pageLoadID mints the uuid.UUID a Scheduler attaches, as the
// page_load_id field, to every line written through its own logger.
// Warnings from the inference helpers go through Config.Logger and do
// not carry it, and the metrics are not labeled with it.
func pageLoadID() uuid.UUID {
	return uuid.New()
}
