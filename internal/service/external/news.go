package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/moodtherapist/backend/internal/config"
	"github.com/moodtherapist/backend/internal/model/chat"
)

var (
	ErrMissingNewsKey = errors.New("missing NewsAPI key")
	ErrNewsUpstream   = errors.New("newsapi request failed")
)

// NewsClient reads top headlines from NewsAPI.
type NewsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	country    string
	pageSize   int
	timeout    time.Duration
}

// NewNewsClient builds a client from configuration. A nil httpClient uses a default one.
func NewNewsClient(cfg config.ExternalConfig, httpClient *http.Client) *NewsClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &NewsClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.NewsBaseURL, "/"),
		apiKey:     cfg.NewsAPIKey,
		country:    cfg.NewsCountry,
		pageSize:   cfg.NewsPageSize,
		timeout:    cfg.Timeout,
	}
}

// TopHeadlines returns headlines that carry both a title and a URL.
func (c *NewsClient) TopHeadlines(ctx context.Context) ([]chat.Article, error) {
	if c.apiKey == "" {
		return nil, ErrMissingNewsKey
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("country", c.country)
	query.Set("pageSize", strconv.Itoa(c.pageSize))
	query.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/top-headlines?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build news request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNewsUpstream, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrNewsUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNewsUpstream, err)
	}
	return parseArticles(body), nil
}

func parseArticles(body []byte) []chat.Article {
	articles := make([]chat.Article, 0)
	gjson.GetBytes(body, "articles").ForEach(func(_, item gjson.Result) bool {
		article := chat.Article{
			Title:       item.Get("title").String(),
			URL:         item.Get("url").String(),
			Source:      item.Get("source.name").String(),
			Description: item.Get("description").String(),
			Image:       item.Get("urlToImage").String(),
		}
		if article.Title != "" && article.URL != "" {
			articles = append(articles, article)
		}
		return true
	})
	return articles
}
