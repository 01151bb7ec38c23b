package node

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "overlaysurvey"

// maxResponseSize caps how much of a response body is read. Survey results
// of large networks are a few megabytes; anything beyond this is not a node.
const maxResponseSize = 64 << 20

// Transport performs a GET request against the node's admin endpoint and
// returns the raw response body.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// HTTPTransport is the live Transport over HTTP.
type HTTPTransport struct {
	// baseURL is the node's admin endpoint, e.g. http://127.0.0.1:11626.
	baseURL *url.URL

	client *http.Client

	userAgent string
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*transportConfig)

type transportConfig struct {
	timeout      time.Duration
	proxyAddress string
	userAgent    string
	httpClient   *http.Client
}

// WithTimeout sets a per-request timeout. Zero, the default, means no
// timeout: a survey result request simply waits for the node.
func WithTimeout(d time.Duration) TransportOption {
	return func(c *transportConfig) {
		c.timeout = d
	}
}

// WithSOCKS5Proxy routes all requests through the SOCKS5 proxy at address
// ("host:port"), e.g. an SSH tunnel to a node that is not reachable directly.
func WithSOCKS5Proxy(address string) TransportOption {
	return func(c *transportConfig) {
		c.proxyAddress = address
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) TransportOption {
	return func(c *transportConfig) {
		c.userAgent = ua
	}
}

// WithHTTPClient replaces the HTTP client entirely. Timeout and proxy
// options are ignored when it is set.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(c *transportConfig) {
		c.httpClient = client
	}
}

// NewHTTPTransport creates a transport for the node at rawURL.
//
// The URL must use the http or https scheme and name a host. Nothing is
// dialed here; connection problems surface on the first request.
func NewHTTPTransport(rawURL string, opts ...TransportOption) (*HTTPTransport, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}

	cfg := transportConfig{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := cfg.httpClient
	if client == nil {
		client, err = newHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
	}

	return &HTTPTransport{
		baseURL:   base,
		client:    client,
		userAgent: cfg.userAgent,
	}, nil
}

func parseBaseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidBaseURL
	}
	if u.Host == "" {
		return nil, ErrInvalidBaseURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func newHTTPClient(cfg transportConfig) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	if cfg.proxyAddress != "" {
		if !isValidProxyAddress(cfg.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", cfg.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.timeout,
	}, nil
}

// isValidProxyAddress checks for "host:port" with a non-empty host and a
// port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// BaseURL returns the node URL requests are sent to.
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL.String()
}

// Get implements Transport. The status code is not checked.
func (t *HTTPTransport) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := t.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	return body, nil
}
