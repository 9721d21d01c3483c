package fragments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// DefaultAccept prefers quad-based formats, which separate data from
// metadata strictly, and then less verbose formats.
const DefaultAccept = "application/n-quads;q=1.0,text/turtle;q=0.8,application/n-triples;q=0.7,text/n3;q=0.6"

// DefaultUserAgent identifies the client to fragment servers.
const DefaultUserAgent = "Triple Pattern Fragments Client"

// Request describes a fragment page to retrieve.
type Request struct {
	URL     string
	Accept  string
	Referer string
}

// Response is a retrieved fragment page.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves fragment pages. Implementations must be safe for
// concurrent use; Fetch is called from background goroutines.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// FetcherConfig configures an HTTPFetcher.
type FetcherConfig struct {
	Client         *http.Client
	MaxParallel    int64
	MaxElapsedTime time.Duration
	UserAgent      string
	Logger         *zap.Logger
	Metrics        *Metrics
}

// DefaultFetcherConfig returns the configuration used by NewHTTPFetcher
// when fields are left zero.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Client:         &http.Client{Timeout: 30 * time.Second},
		MaxParallel:    10,
		MaxElapsedTime: 3 * time.Second,
		UserAgent:      DefaultUserAgent,
		Logger:         zap.NewNop(),
	}
}

// HTTPFetcher retrieves pages over HTTP with a bound on parallel requests.
// Identical requests in flight are coalesced, and transport errors and
// server errors are retried with exponential backoff.
type HTTPFetcher struct {
	cfg   FetcherConfig
	sem   *semaphore.Weighted
	group singleflight.Group
}

// NewHTTPFetcher creates a fetcher. Zero fields of cfg take their defaults.
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	def := DefaultFetcherConfig()
	if cfg.Client == nil {
		cfg.Client = def.Client
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = def.MaxParallel
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = def.MaxElapsedTime
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	return &HTTPFetcher{cfg: cfg, sem: semaphore.NewWeighted(cfg.MaxParallel)}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "server error " + strconv.Itoa(e.code)
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	key := req.Accept + " " + req.URL
	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		return f.fetch(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, req Request) (*Response, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	start := time.Now()
	defer func() { f.cfg.Metrics.Duration.Observe(time.Since(start).Seconds()) }()

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = f.cfg.MaxElapsedTime

	var resp *Response
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			f.cfg.Metrics.Retries.Inc()
			f.cfg.Logger.Debug("retrying fragment request",
				zap.String("url", req.URL), zap.Int("attempt", attempt))
		}
		r, err := f.do(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		resp = r
		if r.StatusCode >= 500 {
			return &statusError{code: r.StatusCode}
		}
		return nil
	}, backoff.WithContext(policy, ctx))

	var se *statusError
	if errors.As(err, &se) && resp != nil {
		// retries exhausted; the caller decides what a 5xx means
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fragments: GET %s: %w", req.URL, err)
	}
	return resp, nil
}

func (f *HTTPFetcher) do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	if req.Referer != "" {
		httpReq.Header.Set("Referer", req.Referer)
	}
	httpReq.Header.Set("User-Agent", f.cfg.UserAgent)

	httpResp, err := f.cfg.Client.Do(httpReq)
	if err != nil {
		f.cfg.Metrics.Requests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer httpResp.Body.Close()
	f.cfg.Metrics.Requests.WithLabelValues(strconv.Itoa(httpResp.StatusCode)).Inc()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	contentType := httpResp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html"
	}
	return &Response{
		URL:         req.URL,
		StatusCode:  httpResp.StatusCode,
		ContentType: mediaType(contentType),
		Body:        body,
	}, nil
}
