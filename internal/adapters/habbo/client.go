// Package habbo talks to the public Battleball API of Habbo Origins.
//
// The upstream throttles aggressively by IP, so every attempt goes
// through a freshly picked proxy and operations retry up to a fixed
// ceiling before surfacing a sentinel error.
package habbo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/battletrack/pkg/logger"
	"github.com/okian/battletrack/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultMaxAttempts = 10
	defaultPageSize    = 100
	defaultConcurrency = 3
	defaultTimeout     = 10 * time.Second
)

// Client issues requests against the game API.
type Client struct {
	baseURL     string
	maxAttempts int
	pageSize    int
	concurrency int
	timeout     time.Duration
	proxies     *proxyPool
	logger      logger.Logger
}

// NewClient builds a Client for baseURL with the given proxy pool.
// An empty pool means direct connections.
func NewClient(baseURL string, proxies []string, opts ...Option) (*Client, error) {
	pool, err := newProxyPool(proxies)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxAttempts: defaultMaxAttempts,
		pageSize:    defaultPageSize,
		concurrency: defaultConcurrency,
		timeout:     defaultTimeout,
		proxies:     pool,
		logger:      logger.Get().Named("habbo"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug(context.Background(), "client ready",
		logger.String("base_url", c.baseURL),
		logger.Int("proxies", pool.size()),
	)
	return c, nil
}

// get performs one attempt of a GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, rawURL string, out any) error {
	client := &http.Client{
		Timeout:   c.timeout,
		Transport: c.proxies.transport(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.RecordAPIAttempt(op, false)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordAPIAttempt(op, false)
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordAPIAttempt(op, false)
		return fmt.Errorf("decode body: %w", err)
	}

	metrics.RecordAPIAttempt(op, true)
	metrics.RecordAPICallDuration(time.Since(start).Seconds())
	return nil
}

// retry runs fn up to the attempt ceiling, rotating the proxy each time.
// The returned error wraps the final attempt's cause.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	var last error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if last = fn(); last == nil {
			return nil
		}
		c.logger.Debug(ctx, "attempt failed",
			logger.String("op", op),
			logger.Int("attempt", attempt),
			logger.Int("max", c.maxAttempts),
			logger.Error(last),
		)
	}
	metrics.RecordAPIExhausted(op)
	return last
}

// ResolveUser looks up the public profile for a username. The name is
// lowercased first; profile lookups are case-insensitive upstream but the
// rest of the system keys on the normalized form.
func (c *Client) ResolveUser(ctx context.Context, username string) (User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	rawURL := c.baseURL + "/users?name=" + url.QueryEscape(username)

	var u User
	err := c.retry(ctx, "resolve_user", func() error {
		var got User
		if err := c.get(ctx, "resolve_user", rawURL, &got); err != nil {
			return err
		}
		if got.BouncerPlayerID == "" {
			return fmt.Errorf("profile %q has no bouncer player id", username)
		}
		u = got
		return nil
	})
	if err != nil {
		return User{}, fmt.Errorf("%w: %q: %w", ErrResolutionFailed, username, err)
	}
	return u, nil
}

// ListMatchIDs pages through the full match-id history for a player.
// Each page gets its own retry budget; a mid-pagination failure restarts
// only the page that failed.
func (c *Client) ListMatchIDs(ctx context.Context, playerID string) ([]string, error) {
	var all []string
	offset := 0
	for {
		pageURL := c.baseURL + "/matches/v1/" + url.PathEscape(playerID) +
			"/ids?offset=" + strconv.Itoa(offset) + "&limit=" + strconv.Itoa(c.pageSize)

		var page []string
		err := c.retry(ctx, "list_match_ids", func() error {
			page = nil
			return c.get(ctx, "list_match_ids", pageURL, &page)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: offset %d: %w", ErrPageFetchFailed, offset, err)
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		offset += c.pageSize
	}
}

// FetchMatch retrieves detail for one match. Exhausted retries surface
// ErrMatchUnavailable; callers treat the match as skippable for this pass.
func (c *Client) FetchMatch(ctx context.Context, matchID string) (*Match, error) {
	rawURL := c.baseURL + "/matches/v1/" + url.PathEscape(matchID)

	var m Match
	err := c.retry(ctx, "fetch_match", func() error {
		m = Match{}
		if err := c.get(ctx, "fetch_match", rawURL, &m); err != nil {
			return err
		}
		if m.Metadata.MatchID == "" {
			return fmt.Errorf("match %q: response missing metadata", matchID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMatchUnavailable, matchID, err)
	}
	return &m, nil
}

// FetchMatchBatch fetches details for ids with bounded parallelism and
// returns only the successfully fetched subset. A failed fetch is logged
// and dropped; it never blocks or fails the batch.
func (c *Client) FetchMatchBatch(ctx context.Context, ids []string) []Match {
	sem := make(chan struct{}, c.concurrency)
	results := make([]*Match, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			m, err := c.FetchMatch(ctx, id)
			if err != nil {
				c.logger.Warn(ctx, "dropping match from batch",
					logger.String("matchID", id),
					logger.Error(err),
				)
				return
			}
			results[i] = m
		}(i, id)
	}
	wg.Wait()

	fetched := make([]Match, 0, len(ids))
	for _, m := range results {
		if m != nil {
			fetched = append(fetched, *m)
		}
	}
	return fetched
}
