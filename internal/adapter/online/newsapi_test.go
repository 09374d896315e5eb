package online

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fincheck/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsAPISourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "TSLA Q3", q.Get("q"))
		assert.Equal(t, "2025-10-06", q.Get("from"))
		assert.Equal(t, "2025-10-20", q.Get("to"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "relevancy", q.Get("sortBy"))
		assert.Equal(t, "2", q.Get("pageSize"))
		assert.Equal(t, "secret", q.Get("apiKey"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"Reuters"},"title":"Tesla deliveries","url":"https://reuters.com/a","publishedAt":"2025-10-02T10:00:00Z","description":"desc","content":"full content"},
			{"source":{"name":""},"title":"No body","url":"https://apnews.com/b","description":" only desc "},
			{"source":{"name":"X"},"title":"","url":"https://x.com/c"},
			{"source":{"name":"Y"},"title":"Over cap","url":"https://y.com/d"}
		]}`))
	}))
	defer srv.Close()

	s := NewNewsAPISource(srv.URL, "secret", "test-agent", srv.Client())
	s.now = func() time.Time { return time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC) }

	articles, err := s.Fetch(context.Background(), port.SourceRequest{Query: "TSLA Q3", Days: 14, MaxItems: 2})
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "Reuters", articles[0].Source)
	assert.Equal(t, "full content", articles[0].Text)
	assert.Equal(t, "2025-10-02T10:00:00Z", articles[0].Published)

	assert.Equal(t, "NewsAPI", articles[1].Source)
	assert.Equal(t, "only desc", articles[1].Text)
}

func TestNewsAPISourceWithoutKey(t *testing.T) {
	s := NewNewsAPISource("http://127.0.0.1:1", "", "", nil)
	articles, err := s.Fetch(context.Background(), port.SourceRequest{Query: "q", Days: 1, MaxItems: 5})
	assert.NoError(t, err)
	assert.Empty(t, articles)
}

func TestNewsAPISourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	}))
	defer srv.Close()

	s := NewNewsAPISource(srv.URL, "k", "", srv.Client())
	_, err := s.Fetch(context.Background(), port.SourceRequest{Query: "q", Days: 1, MaxItems: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}
