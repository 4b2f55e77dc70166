// Package messageapi talks to the upstream Telegram message API: paged
// message listing with bearer auth, client-side rate limiting, retry on
// transient transport failures and an optional Redis page cache.
package messageapi

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"golang.org/x/time/rate"

	"github.com/reshetovitsme/telegram-pulse/internal/shared/config"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

const cacheKeyPrefix = "telegram_api:"

// Client fetches message pages from the upstream API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewClient builds a client from the application config. cache may be nil,
// in which case every fetch goes to the network.
func NewClient(cfg *config.Config, cache *redis.Client, logger *slog.Logger) *Client {
	perMinute := cfg.APIRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: time.Duration(cfg.APITimeout) * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		maxRetries: cfg.APIMaxRetries,
		cache:      cache,
		cacheTTL:   time.Duration(cfg.RedisCacheTTL) * time.Second,
		logger:     logger,
	}
}

// FetchMessages returns one page of the message listing. Pages served from
// cache do not count against the rate limit.
func (c *Client) FetchMessages(ctx context.Context, limit, offset int, useCache bool) (*PageResponse, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	key := cacheKey("/api/messages", params)
	if useCache {
		if page := c.cacheGet(ctx, key); page != nil {
			return page, nil
		}
	}

	page, err := c.fetchWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}
	if useCache {
		c.cachePut(ctx, key, page)
	}
	return page, nil
}

// HealthCheck fetches a single message past the cache to prove the remote
// end is reachable and the token valid.
func (c *Client) HealthCheck(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")
	params.Set("offset", "0")
	_, err := c.fetchWithRetry(ctx, params)
	return err
}

func (c *Client) fetchWithRetry(ctx context.Context, params url.Values) (*PageResponse, error) {
	operation := func() (*PageResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		page, err := c.fetchOnce(ctx, params)
		if err == nil {
			return page, nil
		}
		var remoteErr *apperrors.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Retryable() {
			c.logger.Warn("remote fetch failed, will retry",
				slog.String("kind", remoteErr.Kind.String()),
				slog.Any("error", err),
			)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)),
		ctx,
	)
	return backoff.RetryWithData(operation, policy)
}

func (c *Client) fetchOnce(ctx context.Context, params url.Values) (*PageResponse, error) {
	endpoint := c.baseURL + "/api/messages?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, oops.With("url", endpoint).Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &apperrors.RemoteError{
			Kind:       apperrors.RemoteRateLimit,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode >= 400 {
		return nil, &apperrors.RemoteError{
			Kind:       apperrors.RemoteResponse,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(endpoint, err)
	}

	var page PageResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &apperrors.RemoteError{
			Kind: apperrors.RemoteResponse,
			URL:  endpoint,
			Err:  fmt.Errorf("decode page: %w", err),
		}
	}
	return &page, nil
}

func classifyTransport(endpoint string, err error) error {
	kind := apperrors.RemoteConnection
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		kind = apperrors.RemoteTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		kind = apperrors.RemoteTimeout
	}
	return &apperrors.RemoteError{Kind: kind, URL: endpoint, Err: err}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// cacheKey hashes the endpoint and its encoded (sorted) parameters so the
// same page always maps to the same key.
func cacheKey(endpoint string, params url.Values) string {
	sum := md5.Sum([]byte(endpoint + "|" + params.Encode()))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// cacheGet returns the cached page, or nil on miss or any cache failure.
// The cache is best effort; Redis being down must never fail a fetch.
func (c *Client) cacheGet(ctx context.Context, key string) *PageResponse {
	if c.cache == nil {
		return nil
	}
	data, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("page cache read failed", slog.Any("error", err))
		}
		return nil
	}
	var page PageResponse
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Debug("page cache decode failed", slog.Any("error", err))
		return nil
	}
	return &page
}

func (c *Client) cachePut(ctx context.Context, key string, page *PageResponse) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("page cache write failed", slog.Any("error", err))
	}
}
