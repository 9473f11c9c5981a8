// Package httpclient is the one concrete fetcher.Transport
// implementation this module ships (spec.md §1 places the HTTP client
// itself out of scope, but SPEC_FULL.md gives callers without their
// own transport somewhere to start). It submits a sub-resource
// request, decodes whatever Content-Encoding the origin used, and
// reports the outcome back through tx.Complete/tx.CompleteCSS exactly
// once, the way spec.md §6's startHttpTransaction contract requires.
package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	kgzip "github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/sardanioss/resourcefetch/fetcher"
	"github.com/sardanioss/resourcefetch/resource"
)

// maxBodyBytes caps how much of a sub-resource response this client
// reads into memory: CSS bodies need the full text to be parsed for
// further resources, but nothing here needs to buffer an entire large
// image or script beyond confirming it was fetched.
const maxBodyBytes = 8 << 20

// Client is a minimal net/http-backed Transport: one GET per
// dispatched resource, no redirect following beyond net/http's
// default, no connection pooling beyond net/http's own transport.
type Client struct {
	http      *http.Client
	logger    *zap.Logger
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each sub-resource fetch. The zero value leaves
// net/http's client with no timeout of its own; callers almost always
// want one, since a hung sub-resource otherwise never completes and
// the scheduler for that page load never terminates.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient swaps the underlying *http.Client entirely, e.g. to
// reuse one with a shared connection pool and cookie jar across many
// Clients.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a Client. A nil logger is replaced with zap.NewNop().
func New(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{http: &http.Client{}, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartHttpTransaction implements fetcher.Transport. It performs the
// request synchronously, blocking its caller until the outcome is
// reported; it does not block the scheduler's actor, because
// fetcher.Scheduler.fetchResource already calls it on a dispatch
// goroutine of its own.
func (c *Client) StartHttpTransaction(ctx context.Context, tx fetcher.Tx) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tx.URI, nil)
	if err != nil {
		c.logger.Error("resourcefetch: building sub-resource request failed",
			zap.String("uri", tx.URI), zap.Error(err))
		c.fail(tx)
		return
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	attachCookies(req, tx)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("resourcefetch: sub-resource fetch failed",
			zap.String("uri", tx.URI), zap.Error(err))
		c.fail(tx)
		return
	}
	defer resp.Body.Close()

	update := storeCookies(resp)

	body, err := decodeBody(resp)
	if err != nil {
		c.logger.Warn("resourcefetch: sub-resource body decode failed",
			zap.String("uri", tx.URI), zap.Error(err))
		c.fail(tx)
		return
	}

	outcome := fetcher.OutcomeOK
	if resp.StatusCode >= 400 {
		outcome = fetcher.OutcomeKO
	}
	validator, hasValidator := lastModifiedOrETag(resp.Header)

	if tx.Kind == resource.KindCSS {
		tx.CompleteCSS(outcome, resp.StatusCode, true, validator, hasValidator, body, update)
		return
	}
	tx.Complete(outcome, update)
}

// fail reports a transport-level failure (no response at all) as a
// non-OK completion with none of the caching metadata a real response
// would have carried.
func (c *Client) fail(tx fetcher.Tx) {
	if tx.Kind == resource.KindCSS {
		tx.CompleteCSS(fetcher.OutcomeKO, 0, false, "", false, nil, nil)
		return
	}
	tx.Complete(fetcher.OutcomeKO, nil)
}

func lastModifiedOrETag(h http.Header) (string, bool) {
	if etag := h.Get("ETag"); etag != "" {
		return etag, true
	}
	if lm := h.Get("Last-Modified"); lm != "" {
		return lm, true
	}
	return "", false
}

// decodeBody reads and, if necessary, decompresses resp.Body according
// to its Content-Encoding, capped at maxBodyBytes.
func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = io.LimitReader(resp.Body, maxBodyBytes)

	switch resp.Header.Get("Content-Encoding") {
	case "br":
		reader = brotli.NewReader(reader)
	case "gzip":
		raw, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		gz, err := kgzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			// Fall back to the standard library's gzip reader: some
			// origins emit streams klauspost's stricter reader rejects.
			gz2, err2 := gzip.NewReader(bytes.NewReader(raw))
			if err2 != nil {
				return nil, err
			}
			defer gz2.Close()
			return io.ReadAll(gz2)
		}
		defer gz.Close()
		reader = gz
	case "zstd":
		zr, err := zstd.NewReader(reader)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		reader = zr
	}

	return io.ReadAll(reader)
}
