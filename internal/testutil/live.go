package testutil

import (
	"os"
	"testing"

	"github.com/golovatskygroup/atlassian-lens/internal/config"
)

// LiveCredentials returns credentials for a real Atlassian site, skipping the
// test unless ATLASSIAN_LIVE_TESTS=1 and every credential variable is set.
func LiveCredentials(t *testing.T) config.Credentials {
	t.Helper()
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("load .env: %v", err)
	}
	if os.Getenv("ATLASSIAN_LIVE_TESTS") != "1" {
		t.Skip("set ATLASSIAN_LIVE_TESTS=1 to run against a real Atlassian site")
	}
	creds, err := config.Resolve(config.NewFileStore(os.Getenv("ATLASSIAN_LENS_CONFIG")))
	if err != nil {
		t.Skipf("live credentials unavailable: %v", err)
	}
	return creds
}
