package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// client is the shared outbound plumbing; it holds no per-call state
type client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

func newClient(opts Options) *client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 2),
		userAgent:  opts.UserAgent,
	}
}

// doRequest waits for a rate token and performs the request
func (c *client) doRequest(ctx context.Context, method, url string, body interface{}, headers map[string]string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return resp, nil
}

// checkStatus maps 404 onto ErrUserNotFound and other non-2xx onto ErrUpstream
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet := bytes.TrimSpace(readSnippet(resp.Body))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode == http.StatusBadRequest && bytes.Contains(bytes.ToLower(snippet), []byte("not found")):
		// Codeforces answers unknown handles with 400 and status FAILED
		return fmt.Errorf("%w: %s", ErrUserNotFound, snippet)
	}
	return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, snippet)
}

func readSnippet(r io.Reader) []byte {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return data
}

func (c *client) getJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

func (c *client) postJSON(ctx context.Context, url string, body, target interface{}, headers map[string]string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

func decodeJSON(resp *http.Response, target interface{}) error {
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func (c *client) getHTML(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, url, nil, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc, nil
}
