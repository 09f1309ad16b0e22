package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReportsMissingField(t *testing.T) {
	full := MapReader{
		KeySuiteURL: "https://acme.atlassian.net/",
		KeyEmail:    "me@acme.test",
		KeyToken:    "tok",
	}

	tests := []struct {
		name    string
		drop    string
		wantKey string
	}{
		{name: "url", drop: KeySuiteURL, wantKey: KeySuiteURL},
		{name: "email", drop: KeyEmail, wantKey: KeyEmail},
		{name: "token", drop: KeyToken, wantKey: KeyToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MapReader{}
			for k, v := range full {
				if k != tt.drop {
					r[k] = v
				}
			}
			_, err := Resolve(r)
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantKey, cfgErr.Key)
			assert.Contains(t, err.Error(), "is not configured")
		})
	}
}

func TestResolveBlankValuesAreMissing(t *testing.T) {
	_, err := Resolve(MapReader{KeySuiteURL: "  ", KeyEmail: "a", KeyToken: "b"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, KeySuiteURL, cfgErr.Key)
}

func TestResolveTrimsTrailingSlash(t *testing.T) {
	creds, err := Resolve(MapReader{
		KeySuiteURL: "https://acme.atlassian.net/",
		KeyEmail:    "me@acme.test",
		KeyToken:    "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, Credentials{BaseURL: "https://acme.atlassian.net", Email: "me@acme.test", Token: "tok"}, creds)
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, env := range envOverrides {
		t.Setenv(env, "")
	}
}

func TestFileStoreRereadsOnEveryLookup(t *testing.T) {
	clearEnvOverrides(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(url string) {
		body := "copilot-atlassian-tools:\n  atlassianSuiteUrl: " + url + "\n  httpTimeoutSeconds: 5\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}

	store := NewFileStore(path)
	write("https://one.atlassian.net")
	assert.Equal(t, "https://one.atlassian.net", store.GetConfigValue(KeySuiteURL))

	write("https://two.atlassian.net")
	assert.Equal(t, "https://two.atlassian.net", store.GetConfigValue(KeySuiteURL))
	assert.Equal(t, 5*time.Second, HTTPTimeout(store))
}

func TestFileStoreEnvOverride(t *testing.T) {
	clearEnvOverrides(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("copilot-atlassian-tools:\n  atlassianEmail: file@acme.test\n"), 0o600))
	t.Setenv("ATLASSIAN_EMAIL", "env@acme.test")

	assert.Equal(t, "env@acme.test", NewFileStore(path).GetConfigValue(KeyEmail))
}

func TestFileStoreMissingFile(t *testing.T) {
	clearEnvOverrides(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, "", store.GetConfigValue(KeyToken))

	_, err := Resolve(store)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestHTTPTimeoutDefault(t *testing.T) {
	assert.Equal(t, 30*time.Second, HTTPTimeout(MapReader{KeyHTTPTimeoutSeconds: "nope"}))
}
