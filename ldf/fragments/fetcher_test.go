package fragments

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	t.Run("RetriesServerErrors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httpHandler(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "text/turtle; charset=utf-8")
			_, _ = w.Write([]byte("<http://a> <http://b> <http://c>."))
		})
		reg := prometheus.NewRegistry()
		metrics := NewMetrics(reg)
		f := NewHTTPFetcher(FetcherConfig{Metrics: metrics, MaxElapsedTime: 5 * time.Second})

		resp, err := f.Fetch(context.Background(), Request{URL: srv, Accept: DefaultAccept})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/turtle", resp.ContentType)
		assert.Equal(t, "<http://a> <http://b> <http://c>.", string(resp.Body))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Retries))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues("503")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues("200")))

		count, err := testutil.GatherAndCount(reg, "ldf_http_request_duration_seconds")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("ReturnsPersistentServerError", func(t *testing.T) {
		srv := httpHandler(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		f := NewHTTPFetcher(FetcherConfig{MaxElapsedTime: 200 * time.Millisecond})
		resp, err := f.Fetch(context.Background(), Request{URL: srv})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})

	t.Run("ClientErrorsAreNotRetried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httpHandler(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		})
		f := NewHTTPFetcher(FetcherConfig{})
		resp, err := f.Fetch(context.Background(), Request{URL: srv})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Cancelled", func(t *testing.T) {
		srv := httpHandler(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := NewHTTPFetcher(FetcherConfig{}).Fetch(ctx, Request{URL: srv})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
