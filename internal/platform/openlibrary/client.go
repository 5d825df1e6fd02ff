package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when Open Library has no record for the key.
var ErrNotFound = errors.New("openlibrary: not found")

const defaultBaseURL = "https://openlibrary.org"

type Options struct {
	BaseURL     string
	UserAgent   string
	RPS         float64
	MaxRetries  int
	BackoffBase time.Duration
	HTTPClient  *http.Client
}

type Client struct {
	httpClient  *http.Client
	userAgent   string
	baseURL     string
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
		opts.BackoffBase = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient:  opts.HTTPClient,
		userAgent:   opts.UserAgent,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		limiter:     rate.NewLimiter(rate.Limit(opts.RPS), 1),
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
	}
}

// Names decodes a list given either as plain strings or as {"name": ...}
// objects; Open Library uses both shapes for publishers.
type Names []string

func (n *Names) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return err
		}
		out = append(out, obj.Name)
	}
	*n = out
	return nil
}

// AuthorRef is an author entry on an edition. Editions usually carry only
// the key; Name is set on some imported records.
type AuthorRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Edition matches isbn/{isbn}.json
type Edition struct {
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	Authors     []AuthorRef `json:"authors"`
	Publishers  Names       `json:"publishers"`
	PublishDate string      `json:"publish_date"`
	ISBN13      []string    `json:"isbn_13"`
	ISBN10      []string    `json:"isbn_10"`
}

// AuthorDetails matches authors/{key}.json
type AuthorDetails struct {
	Name         string `json:"name"`
	PersonalName string `json:"personal_name"`
	BirthDate    string `json:"birth_date"`
}

// GetEdition fetches the edition record for an ISBN.
func (c *Client) GetEdition(ctx context.Context, isbn string) (*Edition, error) {
	u := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn)

	var res Edition
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetAuthor(ctx context.Context, authorKey string) (*AuthorDetails, error) {
	// authorKey is usually "/authors/OL..." or just "OL..."
	key := strings.TrimPrefix(authorKey, "/authors/")
	u := fmt.Sprintf("%s/authors/%s.json", c.baseURL, key)

	var res AuthorDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: base, 2*base, 4*base...
			backoff := c.backoffBase << uint(i-1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.do(ctx, url, target)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, url string, target any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return false, fmt.Errorf("decode %s: %w", url, err)
		}
		return false, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
