package online

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Tesla Q3 deliveries</title></head>
<body>
<nav><a href="/">Home</a> <a href="/markets">Markets</a></nav>
<article>
<h1>Tesla Q3 deliveries</h1>
<p>Tesla delivered a record number of vehicles in the third quarter, beating analyst expectations as buyers rushed to claim expiring tax credits before the deadline at the end of September.</p>
<p>The company said production also rose compared with the same period a year earlier, while inventory levels fell for the second consecutive quarter according to the quarterly report.</p>
<p>Shares rose in premarket trading after the figures were published, and analysts said the results eased concerns about slowing demand for electric vehicles in major markets.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestReadabilityExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fincheck-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	e := NewReadabilityExtractor(srv.Client(), NewHostRateLimiter(time.Millisecond), "fincheck-test")
	text, err := e.Extract(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.Contains(t, text, "record number of vehicles")
	assert.False(t, strings.Contains(text, "\n\n"))
}

func TestReadabilityExtractorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewReadabilityExtractor(srv.Client(), nil, "")

	_, err := e.Extract(context.Background(), srv.URL)
	assert.Error(t, err)

	_, err = e.Extract(context.Background(), "ftp://example.com/file")
	assert.Error(t, err)
}

func TestHostRateLimiterMissingHost(t *testing.T) {
	l := NewHostRateLimiter(time.Millisecond)
	assert.Error(t, l.WaitForHost(context.Background(), "/no/host"))
	assert.NoError(t, l.WaitForHost(context.Background(), "https://reuters.com/x"))
}
