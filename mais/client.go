// Package mais provides a client for the MaIS Person API.
//
// The client issues authenticated GET requests for a person's profile or
// affiliation history. Responses come back as XML; FetchUser and
// FetchUserAffiliations wrap them in typed documents. A 404 is not an error:
// those calls return a nil document and a nil error.
package mais

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sul-dlss/mais-person-client/affiliations"
	"github.com/sul-dlss/mais-person-client/metrics"
	"github.com/sul-dlss/mais-person-client/person"
	"github.com/sul-dlss/mais-person-client/ratelimit"
)

const (
	DefaultUserAgent    = "stanford-library"
	DefaultTimeout      = 500 * time.Second
	DefaultDialTimeout  = 10 * time.Second
	DefaultRetryCount   = 3
	DefaultRetryWait    = 500 * time.Millisecond
	DefaultRetryMaxWait = 4 * time.Second

	// Keys containing this marker are test credentials; no client
	// certificate is presented for them.
	fakeKeyMarker = "fakekey"

	endpointPerson      = "person"
	endpointAffiliation = "affiliation"
)

var tracer = otel.Tracer("github.com/sul-dlss/mais-person-client/mais")

// OAuthConfig enables OAuth2 client-credentials authentication.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Config holds MaIS client configuration. Zero durations use the package
// defaults.
type Config struct {
	BaseURL string
	// APIKey and APICert are the PEM-encoded private key and certificate used
	// for mutual TLS.
	APIKey  string
	APICert string
	// APICACert is an optional PEM bundle trusted for the server certificate
	// instead of the system roots.
	APICACert string
	UserAgent string

	Timeout     time.Duration
	DialTimeout time.Duration
	// RetryCount is the number of resty retries for network errors and
	// gateway responses. Zero means DefaultRetryCount; any negative value
	// disables retries.
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration

	OAuth     *OAuthConfig
	RateLimit *ratelimit.Config
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Client wraps MaIS Person API interactions. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.RateLimiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing required MaIS configuration: base URL")
	}
	if cfg.OAuth == nil && (cfg.APIKey == "" || cfg.APICert == "") {
		return nil, fmt.Errorf("missing required MaIS configuration: api key and cert, or OAuth credentials")
	}
	if cfg.OAuth != nil && (cfg.OAuth.ClientID == "" || cfg.OAuth.TokenURL == "") {
		return nil, fmt.Errorf("incomplete OAuth configuration: client id and token URL are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mais")

	cfg = withDefaults(cfg)

	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = transport
	if cfg.OAuth != nil {
		rt = oauthTransport(cfg, transport)
	}

	httpClient := resty.NewWithClient(&http.Client{Transport: rt}).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(shouldRetry).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/xml").
		SetLogger(restyLogger{logger: logger})

	return &Client{
		http:    httpClient,
		limiter: ratelimit.NewRateLimiter(cfg.RateLimit).WithLogger(logger),
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	} else if cfg.RetryCount == 0 {
		cfg.RetryCount = DefaultRetryCount
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = DefaultRetryWait
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = DefaultRetryMaxWait
	}
	return cfg
}

func newTransport(cfg Config) (*http.Transport, error) {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: cfg.DialTimeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.APICACert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(cfg.APICACert)) {
			return nil, errors.New("load MaIS CA certificate: no certificates found")
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.APIKey != "" && !strings.Contains(cfg.APIKey, fakeKeyMarker) {
		cert, err := tls.X509KeyPair([]byte(cfg.APICert), []byte(cfg.APIKey))
		if err != nil {
			return nil, fmt.Errorf("load MaIS client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if tlsConfig.RootCAs != nil || len(tlsConfig.Certificates) > 0 {
		transport.TLSClientConfig = tlsConfig
	}
	return transport, nil
}

func oauthTransport(cfg Config, base http.RoundTripper) http.RoundTripper {
	cc := &clientcredentials.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		TokenURL:     cfg.OAuth.TokenURL,
		Scopes:       cfg.OAuth.Scopes,
	}
	// Token requests go through the same transport and dial timeout.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Transport: base,
		Timeout:   cfg.Timeout,
	})
	return &oauth2.Transport{
		Source: cc.TokenSource(tokenCtx),
		Base:   base,
	}
}

// shouldRetry retries network failures and gateway errors. 429 is left to
// the rate limiter, which honours Retry-After.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	switch resp.StatusCode() {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// FetchUserXML returns the raw person XML for sunetid. found is false when the
// API answers 404. tags follow ParseTags; none means every allowed tag.
func (c *Client) FetchUserXML(ctx context.Context, sunetid string, tags ...string) (body string, found bool, err error) {
	parsed, err := ParseTags(tags...)
	if err != nil {
		return "", false, err
	}
	if err := requireSunetID(sunetid); err != nil {
		return "", false, err
	}

	return c.get(ctx, endpointPerson, "/doc/person/{sunetid}", sunetid, map[string]string{
		"tags": strings.Join(parsed, ","),
	})
}

// FetchUser fetches and parses a person record. It returns nil, nil when the
// person does not exist.
func (c *Client) FetchUser(ctx context.Context, sunetid string, tags ...string) (*person.Document, error) {
	body, found, err := c.FetchUserXML(ctx, sunetid, tags...)
	if err != nil || !found {
		return nil, err
	}
	return person.New(body), nil
}

// FetchUserAffiliationsXML returns the raw affiliation history XML. found is
// false when the API answers 404.
func (c *Client) FetchUserAffiliationsXML(ctx context.Context, sunetid string) (body string, found bool, err error) {
	if err := requireSunetID(sunetid); err != nil {
		return "", false, err
	}
	return c.get(ctx, endpointAffiliation, "/doc/person/{sunetid}/affiliation", sunetid, nil)
}

// FetchUserAffiliations fetches and parses a person's affiliation history.
// It returns nil, nil when the person does not exist.
func (c *Client) FetchUserAffiliations(ctx context.Context, sunetid string) (*affiliations.Document, error) {
	body, found, err := c.FetchUserAffiliationsXML(ctx, sunetid)
	if err != nil || !found {
		return nil, err
	}
	return affiliations.New(body), nil
}

func requireSunetID(sunetid string) error {
	if strings.TrimSpace(sunetid) == "" {
		return fmt.Errorf("sunetid is required")
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path, sunetid string, query map[string]string) (string, bool, error) {
	requestID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "MaIS.Client.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("mais.endpoint", endpoint),
			attribute.String("mais.request_id", requestID),
		))
	defer span.End()

	logger := c.logger.With("endpoint", endpoint, "sunetid", sunetid, "request_id", requestID)
	start := time.Now()

	var (
		body   string
		status int
	)
	err := c.limiter.ExecuteWithRetry(ctx, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("X-Request-ID", requestID).
			SetPathParam("sunetid", sunetid).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			status = 0
			return fmt.Errorf("GET %s: %w", endpoint, err)
		}

		status = resp.StatusCode()
		switch {
		case status == http.StatusNotFound, resp.IsSuccess():
			body = resp.String()
			return nil
		case status == http.StatusTooManyRequests:
			c.metrics.IncrementRateLimited()
		}
		return newResponseError(status, resp.String(), resp.Header())
	})

	elapsed := time.Since(start)
	c.metrics.ObserveRequest(endpoint, status, elapsed)
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("MaIS request failed", "status", status, "elapsed", elapsed, "error", err)
		return "", false, err
	}

	if status == http.StatusNotFound {
		c.metrics.IncrementNotFound(endpoint)
		logger.Info("MaIS person not found")
		return "", false, nil
	}

	logger.Debug("MaIS request completed", "status", status, "elapsed", elapsed, "bytes", len(body))
	return body, true, nil
}

// restyLogger routes resty's retry and error messages through slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
