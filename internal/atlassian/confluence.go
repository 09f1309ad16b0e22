package atlassian

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/golovatskygroup/atlassian-lens/internal/config"
)

const (
	confluenceSearchPath = "/wiki/rest/api/content/search"

	ResourceConfluencePages   = "Confluence pages"
	ResourceConfluenceContent = "Confluence content"

	// MyPagesLimit caps the account listing.
	MyPagesLimit = 20
	// DefaultPageResults is the per-keyword page size when none is given.
	DefaultPageResults = 10

	accountPagesExpand = "history.lastUpdated,space,_links"
	searchPagesExpand  = "body.view,space,version,_links"
)

// AccountPagesCQL lists content created or edited by accountID, newest first.
func AccountPagesCQL(accountID string) string {
	q := quoteQueryValue(accountID)
	return fmt.Sprintf("(creator.accountId = %s OR contributor.accountId = %s) order by lastmodified desc", q, q)
}

// KeywordCQL matches keyword in title or body text, newest first.
func KeywordCQL(keyword string) string {
	q := quoteQueryValue(keyword)
	return fmt.Sprintf("(title ~ %s OR text ~ %s) ORDER BY lastmodified DESC", q, q)
}

// FetchPagesByAccount returns up to MyPagesLimit pages the account created or
// contributed to, with history, space and links expanded.
func (c *Client) FetchPagesByAccount(ctx context.Context, creds config.Credentials, accountID string) (*PageList, error) {
	return c.searchCQL(ctx, creds, AccountPagesCQL(accountID), accountPagesExpand, MyPagesLimit, ResourceConfluencePages)
}

// SearchPages returns up to maxResults normalized pages matching keyword.
// maxResults <= 0 uses DefaultPageResults.
func (c *Client) SearchPages(ctx context.Context, creds config.Credentials, keyword string, maxResults int) ([]Page, error) {
	if maxResults <= 0 {
		maxResults = DefaultPageResults
	}
	list, err := c.searchCQL(ctx, creds, KeywordCQL(keyword), searchPagesExpand, maxResults, ResourceConfluenceContent)
	if err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(list.Results))
	for _, raw := range list.Results {
		pages = append(pages, ToPage(raw, creds.BaseURL))
	}
	return pages, nil
}

func (c *Client) searchCQL(ctx context.Context, creds config.Credentials, cql, expand string, limit int, resource string) (*PageList, error) {
	q := url.Values{}
	q.Set("cql", cql)
	q.Set("expand", expand)
	q.Set("limit", strconv.Itoa(limit))
	var out PageList
	if err := c.get(ctx, creds, confluenceSearchPath, q, resource, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PageURL is the browser link for a page.
func PageURL(baseURL string, raw RawPage) string {
	if raw.Links.WebUI != "" {
		return baseURL + "/wiki" + raw.Links.WebUI
	}
	return baseURL + "/wiki/pages/viewpage.action?pageId=" + url.QueryEscape(raw.ID)
}

// ToPage normalizes a raw search result. Missing sub-objects yield empty fields.
func ToPage(raw RawPage, baseURL string) Page {
	p := Page{
		ID:    raw.ID,
		Title: raw.Title,
		Type:  raw.Type,
		URL:   PageURL(baseURL, raw),
	}
	if raw.Body != nil && raw.Body.View != nil {
		p.Content = StripHTML(raw.Body.View.Value)
	}
	p.Excerpt = Excerpt(p.Content, DefaultExcerptLimit)
	if raw.Space != nil {
		p.SpaceKey = raw.Space.Key
		p.SpaceName = raw.Space.Name
	}

	var last *Version
	switch {
	case raw.Version != nil:
		last = raw.Version
	case raw.History != nil && raw.History.LastUpdated != nil:
		last = raw.History.LastUpdated
	}
	if last != nil {
		p.LastUpdated = last.When
		if last.By != nil {
			p.LastUpdatedBy = last.By.DisplayName
			p.CreatedBy = last.By.DisplayName
		}
	}
	if raw.History != nil && raw.History.CreatedBy != nil {
		p.CreatedBy = raw.History.CreatedBy.DisplayName
	}
	return p
}
