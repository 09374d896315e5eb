package online

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fincheck/internal/domain"
	"fincheck/internal/port"
)

const (
	DefaultNewsAPIURL = "https://newsapi.org/v2/everything"
	newsAPIMaxPage    = 50
)

// NewsAPISource searches the NewsAPI "everything" endpoint. Without an API
// key it returns no articles and no error.
type NewsAPISource struct {
	endpoint  string
	apiKey    string
	userAgent string
	client    *http.Client
	now       func() time.Time
}

func NewNewsAPISource(endpoint, apiKey, userAgent string, client *http.Client) *NewsAPISource {
	if endpoint == "" {
		endpoint = DefaultNewsAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &NewsAPISource{
		endpoint:  endpoint,
		apiKey:    apiKey,
		userAgent: userAgent,
		client:    client,
		now:       time.Now,
	}
}

func (s *NewsAPISource) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Description string `json:"description"`
		Content     string `json:"content"`
	} `json:"articles"`
}

func (s *NewsAPISource) Fetch(ctx context.Context, req port.SourceRequest) ([]domain.Article, error) {
	if s.apiKey == "" || req.MaxItems <= 0 {
		return nil, nil
	}

	to := s.now().UTC()
	from := to.AddDate(0, 0, -req.Days)

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("from", from.Format(time.DateOnly))
	params.Set("to", to.Format(time.DateOnly))
	params.Set("language", "en")
	params.Set("sortBy", "relevancy")
	params.Set("pageSize", strconv.Itoa(min(req.MaxItems, newsAPIMaxPage)))
	params.Set("apiKey", s.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		httpReq.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("newsapi request failed: %w", err)
	}
	defer resp.Body.Close()

	var body newsAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode newsapi response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || body.Status == "error" {
		return nil, fmt.Errorf("newsapi returned status %d: %s %s", resp.StatusCode, body.Code, body.Message)
	}

	articles := make([]domain.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		if len(articles) == req.MaxItems {
			break
		}
		if a.Title == "" || a.URL == "" {
			continue
		}
		source := a.Source.Name
		if source == "" {
			source = "NewsAPI"
		}
		text := a.Content
		if text == "" {
			text = a.Description
		}
		articles = append(articles, domain.Article{
			Title:     a.Title,
			URL:       a.URL,
			Source:    source,
			Published: a.PublishedAt,
			Text:      strings.TrimSpace(text),
		})
	}
	return articles, nil
}
