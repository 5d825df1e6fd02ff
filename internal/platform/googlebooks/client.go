// Package googlebooks is a minimal client for the Google Books volumes API.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.googleapis.com"

type Options struct {
	BaseURL     string
	APIKey      string
	RPS         float64
	MaxRetries  int
	BackoffBase time.Duration
	HTTPClient  *http.Client
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RPS <= 0 {
		opts.RPS = 1
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient:  opts.HTTPClient,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		limiter:     rate.NewLimiter(rate.Limit(opts.RPS), 1),
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
	}
}

type VolumeInfo struct {
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
}

// VolumesResponse matches books/v1/volumes
type VolumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string     `json:"id"`
		VolumeInfo VolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

// First returns the first volume's info, if any.
func (r *VolumesResponse) First() (VolumeInfo, bool) {
	if r == nil || len(r.Items) == 0 {
		return VolumeInfo{}, false
	}
	return r.Items[0].VolumeInfo, true
}

// SearchISBN queries volumes by isbn.
func (c *Client) SearchISBN(ctx context.Context, isbn string) (*VolumesResponse, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u := c.baseURL + "/books/v1/volumes?" + q.Encode()

	var res VolumesResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, u string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(c.backoffBase << uint(i-1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			err = json.NewDecoder(resp.Body).Decode(target)
			resp.Body.Close()
			return err
		}
		resp.Body.Close()

		lastErr = fmt.Errorf("googlebooks: unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return lastErr
		}
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
