package atlassian

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Interpret maps an HTTP status and body to a decoded value or a typed error.
// resource names what was requested ("Jira issues", "Confluence pages") and is
// used in messages and to pick the documentation link for 403s.
func Interpret(status int, statusText string, body []byte, resource string, out any) error {
	switch {
	case status >= 200 && status < 300:
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 || out == nil {
			return nil
		}
		if looksLikeHTML(trimmed) {
			return &ParseError{Resource: resource, Err: errHTMLResponse}
		}
		if err := json.Unmarshal(trimmed, out); err != nil {
			return &ParseError{Resource: resource, Err: err}
		}
		return nil

	case status == http.StatusForbidden:
		docs := ConfluenceRESTDocsURL
		if strings.Contains(resource, "Jira") {
			docs = JiraPermissionsDocsURL
		}
		return &APIError{
			Kind:     KindForbidden,
			Status:   status,
			Resource: resource,
			Message:  fmt.Sprintf("Permission denied (403): Your API token doesn't have sufficient permissions to access %s.", resource),
			DocsURL:  docs,
		}

	case status == http.StatusUnauthorized:
		return &APIError{Kind: KindUnauthorized, Status: status, Resource: resource, Message: unauthorizedMessage}

	case status == http.StatusBadRequest:
		return &APIError{Kind: KindBadRequest, Status: status, Resource: resource, Message: badRequestMessage(body)}

	default:
		if statusText == "" {
			statusText = http.StatusText(status)
		}
		return &APIError{
			Kind:     KindOther,
			Status:   status,
			Resource: resource,
			Message:  fmt.Sprintf("API request failed: %d %s\n%s", status, statusText, strings.TrimSpace(string(body))),
		}
	}
}

// badRequestMessage distinguishes Jira ({"errorMessages":[...],"errors":{...}})
// from Confluence ({"message":"..."}) error bodies.
func badRequestMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return invalidQueryMessage
	}

	if raw, ok := fields["errorMessages"]; ok {
		var msgs []string
		_ = json.Unmarshal(raw, &msgs)
		if len(msgs) == 0 {
			var byField map[string]string
			_ = json.Unmarshal(fields["errors"], &byField)
			keys := make([]string, 0, len(byField))
			for k := range byField {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				msgs = append(msgs, byField[k])
			}
		}
		joined := strings.Join(msgs, ", ")
		if joined == "" {
			joined = invalidQueryMessage
		}
		return "JQL syntax error: " + joined
	}

	var msg string
	_ = json.Unmarshal(fields["message"], &msg)
	if strings.TrimSpace(msg) == "" {
		msg = invalidQueryMessage
	}
	return "CQL syntax error: " + msg
}

func looksLikeHTML(b []byte) bool {
	s := strings.ToLower(string(b))
	return strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html") || (strings.Contains(s, "<html") && strings.Contains(s, "<body"))
}
