// Package config resolves Atlassian credentials and settings from the host's
// configuration store. Values are never cached: every Resolve call reads them
// again so that edits take effect on the next API call.
package config

import (
	"fmt"
	"strings"
)

// Namespace is the settings section every key lives under.
const Namespace = "copilot-atlassian-tools"

// Setting keys.
const (
	KeySuiteURL           = "atlassianSuiteUrl"
	KeyToken              = "atlassianOAuthToken"
	KeyEmail              = "atlassianEmail"
	KeyHTTPTimeoutSeconds = "httpTimeoutSeconds"
	KeyLogLevel           = "logLevel"
)

// Reader is the host's getConfigValue capability. Missing keys yield "".
type Reader interface {
	GetConfigValue(key string) string
}

// Credentials are the three values needed to call Atlassian Cloud REST APIs.
// Token is a static API token used as the Basic-Auth password.
type Credentials struct {
	BaseURL string
	Email   string
	Token   string
}

// ConfigError reports a required setting that is missing or blank.
type ConfigError struct {
	Field string // human name, e.g. "Atlassian Suite URL"
	Key   string // setting key, e.g. "atlassianSuiteUrl"
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured. Set %s.%s in your settings.", e.Field, Namespace, e.Key)
}

// Resolve reads the three credential settings. The first missing one is reported.
func Resolve(r Reader) (Credentials, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(r.GetConfigValue(KeySuiteURL)), "/")
	if baseURL == "" {
		return Credentials{}, &ConfigError{Field: "Atlassian Suite URL", Key: KeySuiteURL}
	}
	token := strings.TrimSpace(r.GetConfigValue(KeyToken))
	if token == "" {
		return Credentials{}, &ConfigError{Field: "Atlassian OAuth token", Key: KeyToken}
	}
	email := strings.TrimSpace(r.GetConfigValue(KeyEmail))
	if email == "" {
		return Credentials{}, &ConfigError{Field: "Atlassian email", Key: KeyEmail}
	}
	return Credentials{BaseURL: baseURL, Email: email, Token: token}, nil
}

// SuiteURL returns the configured base URL without requiring the other credentials.
func SuiteURL(r Reader) (string, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(r.GetConfigValue(KeySuiteURL)), "/")
	if baseURL == "" {
		return "", &ConfigError{Field: "Atlassian Suite URL", Key: KeySuiteURL}
	}
	return baseURL, nil
}

// MapReader is an in-memory Reader.
type MapReader map[string]string

func (m MapReader) GetConfigValue(key string) string {
	return m[key]
}
