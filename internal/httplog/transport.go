// Package httplog decorates outbound Atlassian requests: it stamps a
// User-Agent and logs one line per round trip with credentials redacted.
package httplog

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
)

const redacted = "REDACTED"

// sensitiveHeaders never reach the log.
var sensitiveHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization"}

type Config struct {
	Enabled   bool
	UserAgent string
}

// ConfigFromEnv enables request logging when ATLASSIAN_LENS_HTTP_LOG is truthy.
func ConfigFromEnv() Config {
	enabled := strings.TrimSpace(os.Getenv("ATLASSIAN_LENS_HTTP_LOG"))
	on := enabled == "1" || strings.EqualFold(enabled, "true") || strings.EqualFold(enabled, "yes")
	return Config{Enabled: on, UserAgent: "atlassian-lens"}
}

type Transport struct {
	base   http.RoundTripper
	cfg    Config
	logger *log.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil). Logging goes to
// logger, or log.DefaultLogger when nil.
func NewTransport(base http.RoundTripper, cfg Config, logger *log.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Transport{base: base, cfg: cfg, logger: logger}
}

func NewTransportFromEnv(base http.RoundTripper) *Transport {
	return NewTransport(base, ConfigFromEnv(), nil)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("httplog: nil request")
	}
	if t.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if !t.cfg.Enabled {
		return resp, err
	}

	headers := RedactHeaders(req.Header)
	if err != nil {
		t.logger.Warn().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("authorization", headers.Get("Authorization")).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("atlassian request failed")
		return resp, err
	}
	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("authorization", headers.Get("Authorization")).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("atlassian request")
	return resp, nil
}

// RedactHeaders returns a copy of h with credential-bearing headers masked.
func RedactHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}
	for _, k := range sensitiveHeaders {
		if out.Get(k) != "" {
			out.Set(k, redacted)
		}
	}
	return out
}
