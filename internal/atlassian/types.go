package atlassian

import (
	"encoding/json"
	"strings"
	"time"
)

// Issue is a Jira issue as returned by /rest/api/3/search.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self,omitempty"`
	Fields IssueFields `json:"fields"`
}

type IssueFields struct {
	Summary string `json:"summary"`
	// Description is an ADF document on API v3, a string on older payloads, or null.
	Description json.RawMessage `json:"description,omitempty"`
	IssueType   IssueType       `json:"issuetype"`
	Priority    *Priority       `json:"priority,omitempty"`
	Status      Status          `json:"status"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
	Assignee    *User           `json:"assignee,omitempty"`
	Reporter    *User           `json:"reporter,omitempty"`
	Project     Project         `json:"project"`
}

type IssueType struct {
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
}

type Priority struct {
	Name string `json:"name"`
}

type Status struct {
	Name           string         `json:"name"`
	StatusCategory StatusCategory `json:"statusCategory"`
}

type StatusCategory struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ColorName string `json:"colorName"`
}

type User struct {
	AccountID    string `json:"accountId,omitempty"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// IssueList is the search response envelope.
type IssueList struct {
	Issues     []Issue `json:"issues"`
	Total      int     `json:"total"`
	MaxResults int     `json:"maxResults"`
	StartAt    int     `json:"startAt"`
}

// PriorityName returns "" when the issue has no priority.
func (i Issue) PriorityName() string {
	if i.Fields.Priority == nil {
		return ""
	}
	return i.Fields.Priority.Name
}

func (i Issue) AssigneeName() string {
	if i.Fields.Assignee == nil {
		return ""
	}
	return i.Fields.Assignee.DisplayName
}

func (i Issue) ReporterName() string {
	if i.Fields.Reporter == nil {
		return ""
	}
	return i.Fields.Reporter.DisplayName
}

// UserProfile is the /rest/api/3/myself payload.
type UserProfile struct {
	AccountID    string `json:"accountId"`
	AccountType  string `json:"accountType,omitempty"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Active       bool   `json:"active"`
	TimeZone     string `json:"timeZone,omitempty"`
	Self         string `json:"self,omitempty"`
}

// RawPage is one Confluence content search result. Which sub-objects are
// populated depends on the expand parameter of the request.
type RawPage struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Status  string   `json:"status,omitempty"`
	Title   string   `json:"title"`
	Body    *Body    `json:"body,omitempty"`
	Space   *Space   `json:"space,omitempty"`
	Version *Version `json:"version,omitempty"`
	History *History `json:"history,omitempty"`
	Links   Links    `json:"_links"`
}

type Body struct {
	View *BodyValue `json:"view,omitempty"`
}

type BodyValue struct {
	Value          string `json:"value"`
	Representation string `json:"representation,omitempty"`
}

type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type Version struct {
	When   string `json:"when"`
	Number int    `json:"number,omitempty"`
	By     *User  `json:"by,omitempty"`
}

type History struct {
	CreatedBy   *User    `json:"createdBy,omitempty"`
	CreatedDate string   `json:"createdDate,omitempty"`
	LastUpdated *Version `json:"lastUpdated,omitempty"`
}

type Links struct {
	WebUI string `json:"webui"`
	Base  string `json:"base,omitempty"`
}

// PageList is the content search response envelope.
type PageList struct {
	Results []RawPage `json:"results"`
	Start   int       `json:"start"`
	Limit   int       `json:"limit"`
	Size    int       `json:"size"`
}

// Page is a normalized Confluence page. Excerpt is Content capped at
// DefaultExcerptLimit runes plus "...".
type Page struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Excerpt       string `json:"excerpt"`
	Content       string `json:"content"`
	SpaceKey      string `json:"spaceKey"`
	SpaceName     string `json:"spaceName"`
	LastUpdated   string `json:"lastUpdated"`
	CreatedBy     string `json:"createdBy"`
	LastUpdatedBy string `json:"lastUpdatedBy"`
	URL           string `json:"url"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700", // Jira
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// ParseTimestamp parses Jira and Confluence timestamp formats.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
