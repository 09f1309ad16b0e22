package commands

import (
	"context"
	"fmt"

	"github.com/golovatskygroup/atlassian-lens/internal/atlassian"
	"github.com/golovatskygroup/atlassian-lens/internal/config"
	"github.com/golovatskygroup/atlassian-lens/internal/host"
)

const (
	OpenJira       = Prefix + "openJira"
	OpenConfluence = Prefix + "openConfluence"
	SearchMyIssues = Prefix + "searchMyIssues"
	SearchMyPages  = Prefix + "searchMyPages"
)

// API is the slice of the Atlassian client the commands use.
type API interface {
	GetCurrentUser(ctx context.Context, creds config.Credentials) (*atlassian.UserProfile, error)
	FetchIssuesByQuery(ctx context.Context, creds config.Credentials, jql string) (*atlassian.IssueList, error)
	FetchPagesByAccount(ctx context.Context, creds config.Credentials, accountID string) (*atlassian.PageList, error)
}

type atlassianCommands struct {
	cfg  config.Reader
	api  API
	host host.Host
}

// RegisterDefaults registers the four Atlassian commands.
func RegisterDefaults(r *Registry, cfg config.Reader, api API) error {
	c := &atlassianCommands{cfg: cfg, api: api, host: r.host}
	for _, cmd := range []Command{
		{ID: OpenJira, Title: "Open Jira", Description: "Open Jira in the browser", Run: c.openJira},
		{ID: OpenConfluence, Title: "Open Confluence", Description: "Open Confluence in the browser", Run: c.openConfluence},
		{ID: SearchMyIssues, Title: "Search My Issues", Description: "Pick one of your unresolved Jira issues and open it", Run: c.searchMyIssues},
		{ID: SearchMyPages, Title: "Search My Pages", Description: "Pick a Confluence page you created or edited and open it", Run: c.searchMyPages},
	} {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (c *atlassianCommands) openJira(ctx context.Context) error {
	base, err := config.SuiteURL(c.cfg)
	if err != nil {
		return err
	}
	return c.host.OpenExternal(ctx, base+"/jira")
}

func (c *atlassianCommands) openConfluence(ctx context.Context) error {
	base, err := config.SuiteURL(c.cfg)
	if err != nil {
		return err
	}
	return c.host.OpenExternal(ctx, base+"/wiki")
}

func (c *atlassianCommands) searchMyIssues(ctx context.Context) error {
	creds, err := config.Resolve(c.cfg)
	if err != nil {
		return err
	}
	stopStatus := c.host.SetStatus("Fetching your Jira issues...")
	me, err := c.api.GetCurrentUser(ctx, creds)
	if err != nil {
		stopStatus()
		return err
	}
	list, err := c.api.FetchIssuesByQuery(ctx, creds, atlassian.MyOpenIssuesJQL(me.AccountID))
	stopStatus()
	if err != nil {
		return err
	}
	if list == nil || len(list.Issues) == 0 {
		c.host.ShowInfo("No open issues assigned to you were found.")
		return nil
	}

	items := make([]host.QuickPickItem, 0, len(list.Issues))
	for _, is := range list.Issues {
		items = append(items, IssueItem(is))
	}
	picked, err := c.host.ShowQuickPick(ctx, items, host.QuickPickOptions{
		Placeholder:        fmt.Sprintf("Found %d open issues assigned to you", len(items)),
		MatchOnDescription: true,
		MatchOnDetail:      true,
	})
	if err != nil || picked == nil {
		return err
	}
	return c.host.OpenExternal(ctx, atlassian.IssueURL(creds.BaseURL, picked.Value.(string)))
}

func (c *atlassianCommands) searchMyPages(ctx context.Context) error {
	creds, err := config.Resolve(c.cfg)
	if err != nil {
		return err
	}
	stopStatus := c.host.SetStatus("Fetching your Confluence pages...")
	me, err := c.api.GetCurrentUser(ctx, creds)
	if err != nil {
		stopStatus()
		return err
	}
	list, err := c.api.FetchPagesByAccount(ctx, creds, me.AccountID)
	stopStatus()
	if err != nil {
		return err
	}
	if list == nil || len(list.Results) == 0 {
		c.host.ShowInfo("No Confluence pages created or edited by you were found.")
		return nil
	}

	items := make([]host.QuickPickItem, 0, len(list.Results))
	for _, raw := range list.Results {
		items = append(items, PageItem(atlassian.ToPage(raw, creds.BaseURL)))
	}
	picked, err := c.host.ShowQuickPick(ctx, items, host.QuickPickOptions{
		Placeholder:        fmt.Sprintf("Found %d pages you created or edited", len(items)),
		MatchOnDescription: true,
		MatchOnDetail:      true,
	})
	if err != nil || picked == nil {
		return err
	}
	return c.host.OpenExternal(ctx, picked.Value.(string))
}

// IssueItem renders an issue as "KEY: summary" with status and a detail line.
// Value is the issue key.
func IssueItem(is atlassian.Issue) host.QuickPickItem {
	priority := is.PriorityName()
	if priority == "" {
		priority = "Not set"
	}
	return host.QuickPickItem{
		Label:       is.Key + ": " + is.Fields.Summary,
		Description: is.Fields.Status.Name,
		Detail:      fmt.Sprintf("%s | Priority: %s | Updated: %s", is.Fields.IssueType.Name, priority, localTime(is.Fields.Updated)),
		Value:       is.Key,
	}
}

// PageItem renders a page with its space and last edit. Value is the page URL.
func PageItem(p atlassian.Page) host.QuickPickItem {
	detail := "Updated: " + localTime(p.LastUpdated)
	if p.LastUpdatedBy != "" {
		detail += " by " + p.LastUpdatedBy
	}
	return host.QuickPickItem{
		Label:       p.Title,
		Description: p.SpaceName,
		Detail:      detail,
		Value:       p.URL,
	}
}

func localTime(ts string) string {
	t, ok := atlassian.ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}
