// Package atlassian talks to the Jira and Confluence Cloud REST APIs: it builds
// authenticated requests, interprets responses into typed errors and normalizes
// rich-text payloads into plain text.
package atlassian

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golovatskygroup/atlassian-lens/internal/config"
	"github.com/golovatskygroup/atlassian-lens/internal/httplog"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// Client is safe for concurrent use. It holds no credentials: every call
// takes the Credentials resolved for that invocation.
type Client struct {
	c *http.Client
}

type Options struct {
	// Timeout defaults to 30s.
	Timeout   time.Duration
	Transport http.RoundTripper
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = httplog.NewTransportFromEnv(nil)
	}
	return &Client{
		c: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			// Atlassian redirects unauthenticated API calls to HTML login pages.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// NewClientFromConfig builds a client with the configured HTTP timeout.
func NewClientFromConfig(r config.Reader) *Client {
	return NewClient(Options{Timeout: config.HTTPTimeout(r)})
}

// get issues one authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, creds config.Credentials, apiPath string, query url.Values, resource string, out any) error {
	u := creds.BaseURL + apiPath
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{Resource: resource, Err: err}
	}
	BuildAuthHeaders(creds).Apply(req.Header)

	resp, err := c.c.Do(req)
	if err != nil {
		return &TransportError{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Resource: resource, Err: err}
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return &APIError{
			Kind:     KindOther,
			Status:   resp.StatusCode,
			Resource: resource,
			Message: fmt.Sprintf("API request failed: %d %s\nredirected to %s (likely a login page)",
				resp.StatusCode, statusText(resp), resp.Header.Get("Location")),
		}
	}
	return Interpret(resp.StatusCode, statusText(resp), body, resource, out)
}

func statusText(resp *http.Response) string {
	if text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); text != "" && text != resp.Status {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// quoteQueryValue renders s as a double-quoted JQL/CQL string literal.
func quoteQueryValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
