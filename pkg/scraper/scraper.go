package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/filingmap/internal/types"
	"golang.org/x/time/rate"
)

// DefaultUserAgent impersonates a desktop browser; both remote sites reject
// requests without a browser-like agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type ScraperConfig struct {
	UserAgent string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
	Cache     types.PageCache
}

// StatusError is returned when a remote endpoint answers with a non-200 code.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received status code %d for URL: %s", e.StatusCode, e.URL)
}

type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 8 // SEC fair access allows 10 per second
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit cannot be negative")
	}
	if config.Burst == 0 {
		config.Burst = 1
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
	}, nil
}

func New() *Scraper {
	s, _ := NewWithConfig(ScraperConfig{})
	return s
}

// UserAgent returns the header value sent with every request.
func (s *Scraper) UserAgent() string {
	return s.config.UserAgent
}

// FetchJSON decodes the JSON body at url into v.
func (s *Scraper) FetchJSON(ctx context.Context, url string, v interface{}) error {
	body, err := s.fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", url, err)
	}
	return nil
}

// FetchDocument parses the HTML body at url.
func (s *Scraper) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}
	return doc, nil
}

func (s *Scraper) fetch(ctx context.Context, url string) ([]byte, error) {
	if s.config.Cache != nil {
		body, ok, err := s.config.Cache.Get(ctx, url)
		if err != nil {
			log.Printf("Cache lookup failed for %s: %v", url, err)
		} else if ok {
			return body, nil
		}
	}

	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if s.config.Cache != nil {
		if err := s.config.Cache.Set(ctx, url, body); err != nil {
			log.Printf("Cache store failed for %s: %v", url, err)
		}
	}
	return body, nil
}

// FilingAnchors returns, in page order, the href of every anchor whose target
// starts with prefix and ends with suffix. Duplicate hrefs are kept once.
func FilingAnchors(doc *goquery.Document, prefix, suffix string) []string {
	var hrefs []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, exists := selection.Attr("href")
		if !exists {
			return
		}
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, prefix) || !strings.HasSuffix(href, suffix) {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true
		hrefs = append(hrefs, href)
	})

	return hrefs
}
