package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iyhunko/eco-consumo/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a whole product fetch, rate-limit wait included.
	DefaultTimeout = 10 * time.Second

	// DefaultRatePerMinute matches the published limit for product reads.
	DefaultRatePerMinute = 100

	maxBodyBytes = 4 << 20
	fields       = "product_name,ecoscore_grade,ecoscore_data"
)

var (
	// ErrProductNotFound is returned when Open Food Facts has no data for the barcode.
	ErrProductNotFound = errors.New("product not found in Open Food Facts")

	// ErrTimeout is returned when the request did not complete within the timeout.
	ErrTimeout = errors.New("Open Food Facts request timed out")

	// ErrUnavailable is returned for any other transport or protocol failure.
	ErrUnavailable = errors.New("Open Food Facts request failed")
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the maximum number of requests allowed in the half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing internal counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the ratio of failures to total requests that trips the breaker.
	FailureRatio float64

	// MinRequests is the minimum number of requests needed before the failure ratio is evaluated.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns the breaker settings used in production.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         "openfoodfacts",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Client fetches products from the Open Food Facts API.
// It never retries; failed calls are reported to the caller as they happen.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	breakerCfg  CircuitBreakerConfig
	breaker     *gobreaker.CircuitBreaker[*Product]
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRatePerMinute sets the request budget towards the upstream.
func WithRatePerMinute(perMinute int) Option {
	return func(c *Client) {
		c.rateLimiter = newLimiter(perMinute)
	}
}

// WithCircuitBreaker overrides DefaultCircuitBreakerConfig.
func WithCircuitBreaker(cfg CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.breakerCfg = cfg
	}
}

// NewClient creates a client for the product endpoint at baseURL,
// e.g. https://world.openfoodfacts.org/api/v2/product/.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(baseURL, "/") + "/",
		userAgent:   "EcoConsumo/1.0",
		timeout:     DefaultTimeout,
		rateLimiter: newLimiter(DefaultRatePerMinute),
		breakerCfg:  DefaultCircuitBreakerConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker(c.breakerCfg)
	return c
}

func newLimiter(perMinute int) *rate.Limiter {
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

func newBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[*Product] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.SetUpstreamBreakerState(name, int(to))
		},
		// An unknown barcode is a valid answer, not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
	}
	metrics.SetUpstreamBreakerState(cfg.Name, int(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[*Product](settings)
}

// FetchByBarcode retrieves the raw product for a normalized barcode.
// Errors wrap ErrProductNotFound, ErrTimeout or ErrUnavailable.
func (c *Client) FetchByBarcode(ctx context.Context, barcode string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	product, err := c.breaker.Execute(func() (*Product, error) {
		return c.fetch(ctx, barcode)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	metrics.ObserveUpstreamRequest(outcomeLabel(err), time.Since(start))

	if err != nil {
		slog.Debug("Open Food Facts fetch failed", slog.String("barcode", barcode), slog.Any("err", err))
		return nil, err
	}
	return product, nil
}

func (c *Client) fetch(ctx context.Context, barcode string) (*Product, error) {
	// Wait fails early when the budget cannot be granted before the deadline.
	if err := c.rateLimiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	params := url.Values{}
	params.Set("fields", fields)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, url.PathEscape(barcode), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	slog.Debug("Open Food Facts request", slog.String("url", reqURL))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProductNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var envelope Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	if !envelope.hasProduct() {
		return nil, ErrProductNotFound
	}

	var product Product
	if err := json.Unmarshal(envelope.Product, &product); err != nil {
		return nil, fmt.Errorf("%w: failed to decode product: %v", ErrUnavailable, err)
	}

	return &product, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, ErrProductNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "unavailable"
	}
}
