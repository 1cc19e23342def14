// Package crossref fetches random work samples and member records from the
// Crossref REST API.
//
// Requests fan out over a bounded errgroup pool and share one token-bucket
// limiter. Results are handed to the caller's callback one at a time, so the
// callback never needs its own locking.
package crossref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"crossref/internal/datasource/httpds"
	"crossref/internal/metrics"
)

// SampleSize is the maximum number of works Crossref returns per sample call.
const SampleSize = 100

// workFields is the select list for work samples.
var workFields = []string{
	"DOI",
	"member",
	"deposited",
	"created",
	"type",
	"references-count",
	"is-referenced-by-count",
}

// ErrNoResults is returned when every request in a fan-out failed.
var ErrNoResults = errors.New("crossref: every request failed")

// Config configures a Client. Zero values fall back to defaults.
type Config struct {
	BaseURL string
	// Mailto is sent with every request to join Crossref's polite pool.
	Mailto string
	// Workers bounds concurrent in-flight requests (default 4).
	Workers int
	// RatePerSecond caps the request rate; <= 0 disables limiting.
	RatePerSecond float64

	// Job labels the fetch metrics.
	Job string

	HTTP httpds.Config
}

// Client talks to the Crossref API.
type Client struct {
	http    *httpds.Client
	base    string
	mailto  string
	workers int
	job     string
	limiter *rate.Limiter
	log     *slog.Logger
}

// New builds a Client. The base URL must be absolute.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.crossref.org"
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("crossref: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if log == nil {
		log = slog.Default()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.HTTP.UserAgent == "" && cfg.Mailto != "" {
		cfg.HTTP.UserAgent = "crossref-collector (mailto:" + cfg.Mailto + ")"
	}

	return &Client{
		http:    httpds.NewClient(cfg.HTTP),
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		mailto:  cfg.Mailto,
		workers: cfg.Workers,
		job:     cfg.Job,
		limiter: rate.NewLimiter(limit, cfg.Workers),
		log:     log,
	}, nil
}

// WorksURL returns the sample URL for works with or without references.
func (c *Client) WorksURL(hasRefs bool) string {
	q := url.Values{}
	q.Set("sample", fmt.Sprint(SampleSize))
	if c.mailto != "" {
		q.Set("mailto", c.mailto)
	}
	q.Set("select", strings.Join(workFields, ","))
	flag := "0"
	if hasRefs {
		flag = "1"
	}
	q.Set("filter", "has-references:"+flag)
	return c.base + "/works?" + q.Encode()
}

// MemberURL returns the URL of a single member record.
func (c *Client) MemberURL(id string) string {
	u := c.base + "/members/" + url.PathEscape(id)
	if c.mailto != "" {
		u += "?" + url.Values{"mailto": {c.mailto}}.Encode()
	}
	return u
}

type worksPage struct {
	Message struct {
		Items []map[string]any `json:"items"`
	} `json:"message"`
}

type memberPage struct {
	Message map[string]any `json:"message"`
}

// Samples issues n sample requests and calls fn with each page of items.
//
// A request that still fails after retries is logged and skipped; Samples
// returns ErrNoResults only when all n requests failed. An error from fn
// stops the fan-out and is returned as is.
func (c *Client) Samples(ctx context.Context, hasRefs bool, n int, fn func(items []map[string]any) error) error {
	if n <= 0 {
		return nil
	}
	target := c.WorksURL(hasRefs)
	urls := make([]string, n)
	for i := range urls {
		urls[i] = target
	}
	return fanOut(ctx, c, urls, "sample", func(ctx context.Context, u string) ([]map[string]any, error) {
		var page worksPage
		if err := c.http.GetJSON(ctx, u, &page); err != nil {
			return nil, err
		}
		return page.Message.Items, nil
	}, fn)
}

// Members fetches each id and calls fn with the member's message object.
// Unknown ids and exhausted retries are logged and skipped.
func (c *Client) Members(ctx context.Context, ids []string, fn func(item map[string]any) error) error {
	if len(ids) == 0 {
		return nil
	}
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = c.MemberURL(id)
	}
	return fanOut(ctx, c, urls, "member", func(ctx context.Context, u string) (map[string]any, error) {
		var page memberPage
		if err := c.http.GetJSON(ctx, u, &page); err != nil {
			return nil, err
		}
		if page.Message == nil {
			return nil, fmt.Errorf("crossref: %s: empty message", u)
		}
		return page.Message, nil
	}, fn)
}

// fanOut fetches urls through the worker pool and delivers results to fn
// from the calling goroutine.
func fanOut[T any](
	ctx context.Context,
	c *Client,
	urls []string,
	kind string,
	fetch func(context.Context, string) (T, error),
	fn func(T) error,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	err := runFanOut(ctx, cancel, c, urls, kind, fetch, fn)
	metrics.RecordStep(c.job, kind+"_fetch", err, time.Since(start))
	return err
}

func runFanOut[T any](
	ctx context.Context,
	cancel context.CancelFunc,
	c *Client,
	urls []string,
	kind string,
	fetch func(context.Context, string) (T, error),
	fn func(T) error,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	out := make(chan T)
	done := make(chan error, 1)
	var failed atomic.Int64

	go func() {
		for _, u := range urls {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := c.limiter.Wait(gctx); err != nil {
					return err
				}
				v, err := fetch(gctx, u)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					failed.Add(1)
					metrics.RecordRow(c.job, kind+"_fetch_failed", 1)
					c.log.Warn("crossref: request failed", "kind", kind, "url", u, "err", err)
					return nil
				}
				metrics.RecordRow(c.job, kind+"_fetched", 1)
				select {
				case out <- v:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		done <- g.Wait()
		close(out)
	}()

	var fnErr error
	for v := range out {
		if fnErr != nil {
			continue
		}
		if err := fn(v); err != nil {
			fnErr = err
			cancel()
		}
	}
	if fnErr != nil {
		return fnErr
	}
	if err := <-done; err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := failed.Load(); n == int64(len(urls)) {
		return fmt.Errorf("%w: %d %s requests", ErrNoResults, n, kind)
	}
	return nil
}
