package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLimitedServer returns 429 with the given retry-after header for the first `limited` requests, then 200. Each
// request body is echoed back on success.
func newLimitedServer(t *testing.T, limited int, retryAfter string) (*httptest.Server, *int) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= limited {
			if retryAfter != "" {
				w.Header().Set("retry-after", retryAfter)
			}
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func post(t *testing.T, client *http.Client, url string, body string) *http.Response {
	resp, err := client.Post(url, "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRoundTrip_RetriesShortWait(t *testing.T) {
	srv, calls := newLimitedServer(t, 1, "1")
	client := &http.Client{Transport: WithRateLimiting(nil, 5*time.Second)}

	resp := post(t, client, srv.URL, "hello")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, *calls)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b), "body should be replayed on retry")
}

func TestRoundTrip_ReturnsLongWait(t *testing.T) {
	srv, calls := newLimitedServer(t, 1, "3600")
	client := &http.Client{Transport: WithRateLimiting(nil, 5*time.Second)}

	resp := post(t, client, srv.URL, "hello")

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, *calls)
}

func TestRoundTrip_ReturnsWithoutRetryAfter(t *testing.T) {
	srv, calls := newLimitedServer(t, 1, "")
	client := &http.Client{Transport: WithRateLimiting(nil, 5*time.Second)}

	resp := post(t, client, srv.URL, "hello")

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, *calls)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryAfter("2"))
	assert.Equal(t, time.Duration(0), retryAfter(""))
	assert.Equal(t, time.Duration(0), retryAfter("soon"))

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	d := retryAfter(future)
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}
