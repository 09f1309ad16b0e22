package atlassian

import (
	"encoding/base64"
	"net/http"

	"github.com/golovatskygroup/atlassian-lens/internal/config"
)

// AuthContext holds the per-request headers. It carries the API token and must
// never be logged or stored.
type AuthContext struct {
	Authorization string
	Accept        string
}

// BuildAuthHeaders returns Basic auth over email:token and a JSON Accept header.
func BuildAuthHeaders(creds config.Credentials) AuthContext {
	enc := base64.StdEncoding.EncodeToString([]byte(creds.Email + ":" + creds.Token))
	return AuthContext{
		Authorization: "Basic " + enc,
		Accept:        "application/json",
	}
}

func (a AuthContext) Apply(h http.Header) {
	h.Set("Authorization", a.Authorization)
	h.Set("Accept", a.Accept)
}
