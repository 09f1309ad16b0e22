package atlassian

import (
	"errors"
	"fmt"
)

// Kind classifies a non-2xx Atlassian response.
type Kind int

const (
	KindOther Kind = iota
	KindUnauthorized
	KindForbidden
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	default:
		return "other"
	}
}

// Documentation pointers attached to 403 errors.
const (
	JiraPermissionsDocsURL   = "https://developer.atlassian.com/cloud/jira/platform/rest/v3/intro/#permissions"
	ConfluenceRESTDocsURL    = "https://developer.atlassian.com/cloud/confluence/rest/v1/intro/"
	unauthorizedMessage      = "Authentication failed. Your Atlassian token may be invalid or expired."
	invalidQueryMessage      = "Invalid query"
	loginPageResponseMessage = "response is HTML, not JSON (likely a login page)"
)

// APIError is a terminal HTTP failure with a user-facing message.
type APIError struct {
	Kind     Kind
	Status   int
	Resource string
	Message  string
	DocsURL  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ParseError reports a 2xx body that could not be decoded.
type ParseError struct {
	Resource string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Resource, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError reports a request that never produced an HTTP response.
type TransportError struct {
	Resource string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Error fetching %s: %v", e.Resource, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

var errHTMLResponse = errors.New(loginPageResponseMessage)

// IsKind reports whether err is an *APIError of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}
