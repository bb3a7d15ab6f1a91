// Package wfs provides the core client for the DataBC web feature service:
// request execution with rate limiting, transient-failure retry, error
// classification, feature count resolution and paged feature fetches.
package wfs

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/bcgeo/bcdata-go/pkg/pagination"
)

// Prometheus metrics for WFS client operations.
var (
	wfsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wfs_requests_total",
		Help: "Total WFS requests by operation and status",
	}, []string{"operation", "status"})

	wfsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wfs_request_duration_seconds",
		Help:    "WFS request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})

	wfsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wfs_errors_total",
		Help: "Total WFS errors by class",
	}, []string{"class"})

	wfsFeaturesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wfs_features_fetched_total",
		Help: "Total features decoded from GetFeature responses",
	})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the WFS GetFeature endpoint.
	BaseURL string

	// OWSURL is the OWS endpoint used for capabilities and schema requests.
	OWSURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout is the absolute per-request timeout.
	Timeout time.Duration

	// RateLimit caps outgoing requests per second across all workers.
	// Zero disables client-side limiting.
	RateLimit float64

	// Retry is the transient-failure retry policy.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration pointed at the
// public DataBC endpoints.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://openmaps.gov.bc.ca/geo/pub/wfs",
		OWSURL:    "https://openmaps.gov.bc.ca/geo/pub/ows",
		UserAgent: "bcdata-go/0.1.0",
		Timeout:   30 * time.Second,
		RateLimit: 10,
		Retry:     DefaultRetryConfig(),
	}
}

// Client is the WFS endpoint client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a new WFS client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.OWSURL == "" {
		return nil, fmt.Errorf("ows URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	logger := log.With().Str("component", "wfs-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// get executes a single GET request and returns the response body.
// Status >= 400 is returned as a *ServiceError; the caller decides whether
// to retry based on its class.
func (c *Client) get(ctx context.Context, operation, rawurl string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	defer func() {
		wfsRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().
		Str("operation", operation).
		Str("url", rawurl).
		Msg("Executing WFS request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wfsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		wfsRequestsTotal.WithLabelValues(operation, "network_error").Inc()
		return nil, &ServiceError{
			ErrorClass: ErrorClassNetwork,
			Message:    "transport failure",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	wfsRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classify(resp.StatusCode, nil)
		wfsErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("operation", operation).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("WFS request error")

		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		wfsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &ServiceError{
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return body, nil
}

// getWithRetry wraps get in the retry policy.
func (c *Client) getWithRetry(ctx context.Context, operation, rawurl string) ([]byte, error) {
	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		var reqErr error
		body, reqErr = c.get(ctx, operation, rawurl)
		return reqErr
	}, classifyError)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// classifyError extracts the error class from a request error.
func classifyError(err error) ErrorClass {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.ErrorClass
	}
	return ErrorClassNetwork
}

// hitsResponse is the root of a resultType=hits response. Only the
// numberMatched attribute is of interest.
type hitsResponse struct {
	NumberMatched string `xml:"numberMatched,attr"`
}

// GetCount asks the service how many features match the table, filter and
// bounds. The count is re-fetched on every invocation; filters can change
// the result arbitrarily between calls, so it is never cached.
func (c *Client) GetCount(ctx context.Context, table string, spec QuerySpec, geomColumn string) (int, error) {
	spec = spec.withDefaults()

	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeName", table)
	params.Set("resultType", "hits")
	params.Set("outputFormat", "json")
	if cql := spec.CQLFilter(geomColumn); cql != "" {
		params.Set("CQL_FILTER", cql)
	}

	var count int
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		body, reqErr := c.get(ctx, "hits", c.config.BaseURL+"?"+params.Encode())
		if reqErr != nil {
			return reqErr
		}

		var hits hitsResponse
		if err := xml.Unmarshal(body, &hits); err != nil {
			// Garbled payload from an otherwise 200 response, presume
			// service trouble and retry.
			return &ServiceError{
				ErrorClass: ErrorClassServer,
				Message:    "unparseable hits response",
				Err:        err,
			}
		}

		n, err := strconv.Atoi(hits.NumberMatched)
		if err != nil {
			return &ServiceError{
				ErrorClass: ErrorClassServer,
				Message:    fmt.Sprintf("no usable numberMatched in hits response: %q", hits.NumberMatched),
			}
		}
		if n < 0 {
			return &ServiceError{
				ErrorClass: ErrorClassServer,
				Message:    fmt.Sprintf("negative numberMatched: %d", n),
			}
		}
		count = n
		return nil
	}, classifyError)
	if err != nil {
		return 0, err
	}

	c.logger.Debug().
		Str("dataset", table).
		Int("count", count).
		Msg("Feature count resolved")

	return count, nil
}

// WindowURL builds the GetFeature request URL for one page window.
func (c *Client) WindowURL(table string, spec QuerySpec, geomColumn string, w pagination.Window) string {
	spec = spec.withDefaults()

	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeName", table)
	params.Set("outputFormat", "json")
	params.Set("SRSNAME", spec.CRS)
	if spec.SortBy != "" {
		params.Set("sortby", strings.ToUpper(spec.SortBy))
	}
	if cql := spec.CQLFilter(geomColumn); cql != "" {
		params.Set("CQL_FILTER", cql)
	}
	params.Set("count", strconv.Itoa(w.Count))
	if w.Start > 0 {
		params.Set("startIndex", strconv.Itoa(w.Start))
	}

	return c.config.BaseURL + "?" + params.Encode()
}

// FetchWindow issues the paged GetFeature request for one window and
// returns the decoded feature batch. Transient failures are retried here;
// an error from FetchWindow means the retry ceiling was exhausted or the
// request was rejected outright.
func (c *Client) FetchWindow(ctx context.Context, table string, spec QuerySpec, geomColumn string, w pagination.Window) ([]*geojson.Feature, error) {
	rawurl := c.WindowURL(table, spec, geomColumn, w)

	body, err := c.getWithRetry(ctx, "GetFeature", rawurl)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection (offset %d): %w", w.Start, err)
	}

	wfsFeaturesFetchedTotal.Add(float64(len(fc.Features)))

	c.logger.Debug().
		Str("dataset", table).
		Int("offset", w.Start).
		Int("features", len(fc.Features)).
		Msg("Window fetched")

	return fc.Features, nil
}
