package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
	"gopkg.in/yaml.v3"
)

// envOverrides maps setting keys to environment variables that take precedence
// over the file.
var envOverrides = map[string]string{
	KeySuiteURL:           "ATLASSIAN_SUITE_URL",
	KeyEmail:              "ATLASSIAN_EMAIL",
	KeyToken:              "ATLASSIAN_API_TOKEN",
	KeyHTTPTimeoutSeconds: "ATLASSIAN_HTTP_TIMEOUT_SECONDS",
	KeyLogLevel:           "ATLASSIAN_LOG_LEVEL",
}

// FileStore reads settings from a YAML file on every lookup:
//
//	copilot-atlassian-tools:
//	  atlassianSuiteUrl: https://example.atlassian.net
//	  atlassianEmail: me@example.com
//	  atlassianOAuthToken: <api token>
type FileStore struct {
	Path string
}

// NewFileStore returns a store for path, or for DefaultPath when path is empty.
func NewFileStore(path string) *FileStore {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	return &FileStore{Path: path}
}

// DefaultPath is $XDG_CONFIG_HOME/atlassian-lens/config.yaml (or the OS equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "atlassian-lens.yaml"
	}
	return filepath.Join(dir, "atlassian-lens", "config.yaml")
}

func (s *FileStore) GetConfigValue(key string) string {
	if env, ok := envOverrides[key]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	values, err := s.load()
	if err != nil {
		log.Warn().Err(err).Str("path", s.Path).Msg("config file unreadable")
		return ""
	}
	return values[key]
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var doc map[string]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	out := map[string]string{}
	for k, v := range doc[Namespace] {
		if v == nil {
			continue
		}
		out[k] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out, nil
}

// HTTPTimeout returns the configured client timeout, defaulting to 30s.
func HTTPTimeout(r Reader) time.Duration {
	if v := strings.TrimSpace(r.GetConfigValue(KeyHTTPTimeoutSeconds)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 30 * time.Second
}
