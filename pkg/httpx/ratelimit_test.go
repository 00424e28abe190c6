package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimitByIPBlocksAfterBurst(t *testing.T) {
	t.Parallel()

	limited := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		RateLimitByIP(RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}),
	)

	doRequest := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, doRequest("10.0.0.1:1234"))
	require.Equal(t, http.StatusOK, doRequest("10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, doRequest("10.0.0.1:1234"))

	// A different client is unaffected.
	require.Equal(t, http.StatusOK, doRequest("10.0.0.2:1234"))
}

func TestCompositeKeyExtractorJoinsParts(t *testing.T) {
	t.Parallel()

	extractor := CompositeKeyExtractor(":", IPKeyExtractor, FormFieldKeyExtractor("username"))

	req := httptest.NewRequest(http.MethodPost, "/login?username=alice", nil)
	req.RemoteAddr = "10.0.0.1:9999"

	require.Equal(t, "10.0.0.1:alice", extractor(req))
}

func TestIPKeyExtractorPrefersForwardedHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	require.Equal(t, "203.0.113.7", IPKeyExtractor(req))
}
