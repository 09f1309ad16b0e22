package atlassian

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/golovatskygroup/atlassian-lens/internal/config"
)

const (
	jiraSearchPath = "/rest/api/3/search"
	jiraMyselfPath = "/rest/api/3/myself"

	ResourceJiraIssues = "Jira issues"
	ResourceUserInfo   = "user info"

	// DefaultIssueResults is the per-keyword page size when none is given.
	DefaultIssueResults = 10
)

// KeywordJQL matches keyword in summary or description, newest first.
func KeywordJQL(keyword string) string {
	q := quoteQueryValue(keyword)
	return fmt.Sprintf("summary ~ %s OR description ~ %s ORDER BY updated DESC", q, q)
}

// MyOpenIssuesJQL lists unresolved issues assigned to accountID, newest first.
func MyOpenIssuesJQL(accountID string) string {
	return fmt.Sprintf("assignee = %s AND resolution = Unresolved ORDER BY updated DESC", quoteQueryValue(accountID))
}

// IssueURL is the browser link for an issue key.
func IssueURL(baseURL, key string) string {
	return baseURL + "/browse/" + key
}

// FetchIssuesByQuery runs jql with the server's default page size.
func (c *Client) FetchIssuesByQuery(ctx context.Context, creds config.Credentials, jql string) (*IssueList, error) {
	return c.searchJQL(ctx, creds, jql, 0)
}

// SearchIssues returns up to maxResults issues whose summary or description
// matches keyword. maxResults <= 0 uses DefaultIssueResults.
func (c *Client) SearchIssues(ctx context.Context, creds config.Credentials, keyword string, maxResults int) ([]Issue, error) {
	if maxResults <= 0 {
		maxResults = DefaultIssueResults
	}
	list, err := c.searchJQL(ctx, creds, KeywordJQL(keyword), maxResults)
	if err != nil {
		return nil, err
	}
	if list.Issues == nil {
		return []Issue{}, nil
	}
	return list.Issues, nil
}

// GetCurrentUser returns the profile the credentials authenticate as.
func (c *Client) GetCurrentUser(ctx context.Context, creds config.Credentials) (*UserProfile, error) {
	var out UserProfile
	if err := c.get(ctx, creds, jiraMyselfPath, nil, ResourceUserInfo, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) searchJQL(ctx context.Context, creds config.Credentials, jql string, maxResults int) (*IssueList, error) {
	q := url.Values{}
	q.Set("jql", jql)
	if maxResults > 0 {
		q.Set("maxResults", strconv.Itoa(maxResults))
	}
	var out IssueList
	if err := c.get(ctx, creds, jiraSearchPath, q, ResourceJiraIssues, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
