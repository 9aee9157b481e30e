package openlibrary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://openlibrary.org/"
	SearchPath     = "search.json"
	// DocsSelector picks the result records out of a search.json response.
	DocsSelector = "$.docs[*]"
	// MaxPageSize is the largest limit served in a single page.
	MaxPageSize = 100
)

type Client struct {
	httpClient *retryablehttp.Client
	userAgent  string
	baseURL    *url.URL
}

// NewClient builds a client that waits on a shared limiter before every attempt,
// including retries.
func NewClient(baseURL, userAgent string, rps int, maxRetries int) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if rps <= 0 {
		rps = 1
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.HTTPClient.Transport = &limitedTransport{
		next:    rc.HTTPClient.Transport,
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = time.Second
	rc.RetryWaitMax = 8 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil

	return &Client{
		httpClient: rc,
		userAgent:  userAgent,
		baseURL:    u,
	}, nil
}

// Search fetches one page of search.json results and returns the selected records.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > MaxPageSize {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", MaxPageSize, limit)
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: SearchPath})
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	doc, err := c.getJSON(ctx, u.String())
	if err != nil {
		return nil, err
	}
	records, err := SelectRecords(doc, DocsSelector)
	if err != nil {
		return nil, &FetchError{URL: u.String(), Err: err}
	}
	return records, nil
}

// SearchSource binds a query so the pipeline can fetch without knowing about search.json.
func (c *Client) SearchSource(query string, limit int) *SearchSource {
	return &SearchSource{client: c, query: query, limit: limit}
}

type SearchSource struct {
	client *Client
	query  string
	limit  int
}

func (s *SearchSource) Fetch(ctx context.Context) ([]map[string]any, error) {
	return s.client.Search(ctx, s.query, s.limit)
}

func (s *SearchSource) Describe() string {
	return fmt.Sprintf("%s%s?q=%s&limit=%d", s.client.baseURL, SearchPath, s.query, s.limit)
}

func (c *Client) getJSON(ctx context.Context, rawURL string) (any, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	doc, err := decodeJSON(body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	return doc, nil
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return doc, nil
}

type limitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
