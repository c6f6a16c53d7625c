// Package httpclient is the shared outbound HTTP layer for source adapters.
// Every call is gated by the adapter's token bucket, and every failure is
// converted into a typed *Error at this boundary so raw transport errors
// never reach core logic.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Indranil2020/search/pkg/ratelimit"
)

const defaultUserAgent = "SearchSystem/1.0"

const defaultTimeout = 30 * time.Second

// Response is the decoded-on-demand result of a request.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	URL        string
}

// JSON decodes the body into v. A decode failure is an ordinary error, not a
// transport fault.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// XML decodes the body into v.
func (r *Response) XML(v any) error {
	if err := xml.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("invalid XML: %w", err)
	}
	return nil
}

// Client is a rate-limited HTTP client. Its only mutable state is the token
// bucket, so a single instance is safe for concurrent use.
type Client struct {
	hc        *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default 30 second request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

// WithUserAgent overrides the default User-Agent, e.g. for CrossRef's polite
// pool which keys on a mailto address.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client limited to rps requests per second.
func New(rps float64, opts ...Option) *Client {
	c := &Client{
		hc:        &http.Client{Timeout: defaultTimeout},
		limiter:   ratelimit.New(rps),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET request. params are URL-encoded and appended to any query
// already present on the URL.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, header http.Header) (*Response, error) {
	rawURL, err := withParams(rawURL, params)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, rawURL, header, nil)
}

// Post issues a POST request. When asJSON is true the body is JSON-encoded,
// otherwise form-encoded.
func (c *Client) Post(ctx context.Context, rawURL string, body map[string]string, header http.Header, asJSON bool) (*Response, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	hdr := http.Header{}
	for k, vs := range header {
		hdr[k] = vs
	}

	var payload []byte
	if body != nil {
		if asJSON {
			payload, _ = json.Marshal(body)
			hdr.Set("Content-Type", "application/json")
		} else {
			form := url.Values{}
			for k, v := range body {
				form.Set(k, v)
			}
			payload = []byte(form.Encode())
			hdr.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	return c.do(ctx, http.MethodPost, rawURL, hdr, payload)
}

func (c *Client) do(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindOther, URL: rawURL, Message: err.Error()}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, &Error{Kind: KindOther, URL: rawURL, Message: err.Error()}
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, classify(err, rawURL)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err, rawURL)
	}

	if resp.StatusCode >= 400 {
		return nil, &Error{
			Kind:       KindProtocol,
			StatusCode: resp.StatusCode,
			URL:        rawURL,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       raw,
		Header:     resp.Header,
		URL:        rawURL,
	}, nil
}

func validateURL(rawURL string) error {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return &Error{Kind: KindOther, URL: rawURL, Message: "URL must start with http:// or https://"}
	}
	return nil
}

func withParams(rawURL string, params url.Values) (string, error) {
	if err := validateURL(rawURL); err != nil {
		return "", err
	}
	if len(params) == 0 {
		return rawURL, nil
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + params.Encode(), nil
}
