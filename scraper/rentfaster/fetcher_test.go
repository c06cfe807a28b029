package rentfaster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherParsesPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(`<html><body><div id="listingview_full_desc">ok</div></body></html>`))
	}))
	defer ts.Close()

	doc, err := NewHTTPFetcher(2*time.Second).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("#listingview_full_desc").Text())
}

func TestHTTPFetcherSendsOneRequestPerFetch(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				http.Error(w, "nope", status)
			}))
			defer ts.Close()

			_, err := NewHTTPFetcher(2*time.Second).Fetch(context.Background(), ts.URL)
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, status, se.StatusCode)
			assert.Equal(t, "nope", se.Body)
			assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
		})
	}
}

func TestHTTPFetcherRejectsOversizedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>" + strings.Repeat("x", 64) + "</body></html>"))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(2 * time.Second)
	f.maxBody = 32
	_, err := f.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body too large")

	f.maxBody = 1024
	_, err = f.Fetch(context.Background(), ts.URL)
	assert.NoError(t, err)
}

func TestStatusErrorThrottled(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 429}).Throttled())
	assert.True(t, (&StatusError{StatusCode: 503}).Throttled())
	assert.False(t, (&StatusError{StatusCode: 502}).Throttled())
	assert.False(t, (&StatusError{StatusCode: 403}).Throttled())
}
