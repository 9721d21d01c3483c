package fragments

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// FragmentsClient retrieves the fragments of one Triple Pattern Fragments
// interface. The search form of its start fragment addresses all other
// fragments. Recently requested fragments are cached, and concurrent
// requests for the same fragment share a single download.
type FragmentsClient struct {
	sched    *iterator.Scheduler
	startURL string
	start    *fragment
	startErr error
	opts     *options
	cache    *lru.Cache[string, *iterator.Cloneable[rdf.Triple]]
	ctx      context.Context
	cancel   context.CancelFunc
	failures int
}

// NewClient creates a client for the interface whose start fragment is at
// startURL. Loading the start fragment begins immediately.
func NewClient(sched *iterator.Scheduler, startURL string, opts ...Option) (*FragmentsClient, error) {
	o := newOptions(opts)
	// Evicted fragments stay readable by the clones handed out so far.
	cache, err := lru.NewWithEvict(o.cacheSize, func(_ string, entry *iterator.Cloneable[rdf.Triple]) {
		entry.Release()
	})
	if err != nil {
		return nil, fmt.Errorf("fragments: creating cache: %w", err)
	}
	ctx, cancel := context.WithCancel(sched.Context())
	c := &FragmentsClient{
		sched:    sched,
		startURL: startURL,
		opts:     o,
		cache:    cache,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.start = c.newFragment("start " + startURL)
	c.start.onFail = func(err error) {
		c.startErr = err
		c.cache.Purge()
	}
	c.start.load(startURL)
	return c, nil
}

// Scheduler implements Client.
func (c *FragmentsClient) Scheduler() *iterator.Scheduler {
	return c.sched
}

// Failures implements Client.
func (c *FragmentsClient) Failures() int {
	return c.failures
}

// Abort implements Client.
func (c *FragmentsClient) Abort() {
	c.cancel()
}

// StartURL returns the URL of the start fragment.
func (c *FragmentsClient) StartURL() string {
	return c.startURL
}

// Controls returns the controls of the start fragment once loaded.
func (c *FragmentsClient) Controls() (*Controls, bool) {
	return ControlsOf(c.start.buf)
}

// SupportsFreeText implements Client.
func (c *FragmentsClient) SupportsFreeText() bool {
	controls, ok := c.Controls()
	return ok && controls.SupportsFreeText()
}

// AwaitFreeText implements Client.
func (c *FragmentsClient) AwaitFreeText(fn func(bool)) {
	iterator.AwaitProperty(c.start.buf.Properties(), PropControls, func(controls *Controls) {
		fn(c.startErr == nil && controls.SupportsFreeText())
	})
}

// FragmentByPattern implements Client. Fragments whose subject or predicate
// is a literal cannot match anything and are empty without a request.
func (c *FragmentsClient) FragmentByPattern(pattern rdf.Triple) Fragment {
	norm := pattern.Normalize()
	return c.cached(pattern.Key(), pattern.QuickString(), func(f *fragment) {
		if rdf.IsLiteral(norm.Subject) || rdf.IsLiteral(norm.Predicate) {
			f.empty()
			return
		}
		c.withControls(f, func(controls *Controls) (string, error) {
			return controls.FragmentURL(norm)
		})
	})
}

// FragmentBySubstring implements Client.
func (c *FragmentsClient) FragmentBySubstring(s string) Fragment {
	return c.cached("substring "+strconv.Quote(s), "substring "+strconv.Quote(s), func(f *fragment) {
		c.withControls(f, func(controls *Controls) (string, error) {
			return controls.SubstringURL(s)
		})
	})
}

func (c *FragmentsClient) cached(key, desc string, load func(f *fragment)) Fragment {
	if entry, ok := c.cache.Get(key); ok {
		c.opts.metrics.CacheHits.Inc()
		c.annotate(annotations.FragmentRequested, map[string]interface{}{"pattern": desc, "cache": "hit"})
		return entry.Clone()
	}
	c.opts.metrics.CacheMisses.Inc()
	c.annotate(annotations.FragmentRequested, map[string]interface{}{"pattern": desc, "cache": "miss"})

	f := c.newFragment(desc)
	entry := iterator.NewCloneable[rdf.Triple](f.buf)
	c.cache.Add(key, entry)
	load(f)
	return entry.Clone()
}

// withControls loads f from the URL derived from the start fragment's
// controls, or fails f if the start fragment could not be loaded.
func (c *FragmentsClient) withControls(f *fragment, url func(*Controls) (string, error)) {
	iterator.AwaitProperty(c.start.buf.Properties(), PropControls, func(controls *Controls) {
		if c.startErr != nil {
			f.fail(c.startURL, c.startErr)
			return
		}
		u, err := url(controls)
		if err != nil {
			f.fail(c.startURL, err)
			return
		}
		f.load(u)
	})
}

func (c *FragmentsClient) annotate(name string, data map[string]interface{}) {
	c.opts.annotations.AddEvent(name, data)
}

// fragment loads the pages of one fragment into a buffer. The next page is
// requested only when the consumer has caught up with the current one.
type fragment struct {
	client  *FragmentsClient
	buf     *iterator.Buffer[rdf.Triple]
	ctx     context.Context
	cancel  context.CancelFunc
	next    string
	loading bool
	onFail  func(error)
}

func (c *FragmentsClient) newFragment(desc string) *fragment {
	ctx, cancel := context.WithCancel(c.ctx)
	f := &fragment{
		client: c,
		buf:    iterator.NewBuffer[rdf.Triple](c.sched, "Fragment"),
		ctx:    ctx,
		cancel: cancel,
	}
	f.buf.SetDescription(desc)
	f.buf.OnClose(cancel)
	f.buf.OnEnd(cancel)
	f.buf.OnDemand(func() {
		if f.next != "" && !f.loading {
			u := f.next
			f.next = ""
			f.load(u)
		}
	})
	return f
}

type pageResult struct {
	resp    *Response
	page    *Page
	err     error
	started time.Time
}

func (f *fragment) load(pageURL string) {
	c := f.client
	f.loading = true
	req := Request{URL: pageURL, Accept: c.opts.accept, Referer: c.startURL}
	started := time.Now()
	c.sched.Go(func(context.Context) func() {
		res := pageResult{started: started}
		res.resp, res.err = c.opts.fetcher.Fetch(f.ctx, req)
		if res.err == nil && res.resp.StatusCode/100 == 2 {
			parser, ok := ParserFor(res.resp.ContentType)
			if !ok {
				res.err = fmt.Errorf("fragments: no parser for %s at %s", res.resp.ContentType, pageURL)
			} else {
				res.page, res.err = parser.Parse(bytes.NewReader(res.resp.Body), pageURL)
			}
		}
		return func() { f.receive(pageURL, res) }
	})
}

// receive runs on the scheduler with the outcome of a page request.
func (f *fragment) receive(pageURL string, res pageResult) {
	f.loading = false
	if f.buf.Closing() {
		return
	}
	if res.err != nil {
		f.fail(pageURL, res.err)
		return
	}
	props := f.buf.Properties()
	props.Set(PropStatusCode, res.resp.StatusCode)
	props.Set(PropContentType, res.resp.ContentType)
	if res.resp.StatusCode/100 != 2 {
		f.fail(pageURL, fmt.Errorf("fragments: could not retrieve %s (%d)", pageURL, res.resp.StatusCode))
		return
	}

	controls, err := ExtractControls(pageURL, res.page.Metadata)
	if err != nil {
		f.fail(pageURL, err)
		return
	}
	for _, t := range res.page.Data {
		f.buf.Push(t)
	}
	props.Set(PropMetadata, ExtractCount(pageURL, res.page.Metadata))
	props.Set(PropControls, controls)
	f.client.opts.annotations.AddTiming(annotations.FragmentPage, res.started, map[string]interface{}{
		"url":           pageURL,
		"status":        res.resp.StatusCode,
		"triples.count": len(res.page.Data),
	})

	switch {
	case controls.Next == "":
		f.buf.End()
	case len(res.page.Data) == 0:
		f.load(controls.Next)
	default:
		f.next = controls.Next
	}
}

// empty ends the fragment as one without matches.
func (f *fragment) empty() {
	f.buf.Properties().Set(PropMetadata, EmptyMetadata)
	f.buf.End()
}

// fail reports err and ends the fragment. Metadata and controls not yet
// known are set so that nothing waits for them forever.
func (f *fragment) fail(pageURL string, err error) {
	c := f.client
	c.failures++
	c.opts.metrics.PageFailures.Inc()
	c.opts.logger.Warn("fragment page failed", zap.String("url", pageURL), zap.Error(err))
	c.annotate(annotations.FragmentFailed, map[string]interface{}{"url": pageURL, "error": err})
	if f.onFail != nil {
		f.onFail(err)
	}
	props := f.buf.Properties()
	props.Set(PropMetadata, FailedMetadata)
	props.Set(PropControls, &Controls{Fragment: pageURL})
	f.buf.Fail(err)
	f.buf.End()
}
