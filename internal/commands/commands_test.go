package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/atlassian-lens/internal/atlassian"
	"github.com/golovatskygroup/atlassian-lens/internal/config"
	"github.com/golovatskygroup/atlassian-lens/internal/host"
)

type fakeHost struct {
	infos    []string
	errors   []string
	actions  [][]string
	choose   string
	statuses []string
	cleared  int
	picked   int // index to pick; -1 dismisses
	lastPick []host.QuickPickItem
	pickOpts host.QuickPickOptions
	opened   []string
}

func (f *fakeHost) ShowInfo(msg string) { f.infos = append(f.infos, msg) }

func (f *fakeHost) ShowError(_ context.Context, msg string, actions ...string) (string, error) {
	f.errors = append(f.errors, msg)
	f.actions = append(f.actions, actions)
	return f.choose, nil
}

func (f *fakeHost) SetStatus(msg string) func() {
	f.statuses = append(f.statuses, msg)
	return func() { f.cleared++ }
}

func (f *fakeHost) ShowQuickPick(_ context.Context, items []host.QuickPickItem, opts host.QuickPickOptions) (*host.QuickPickItem, error) {
	f.lastPick = items
	f.pickOpts = opts
	if f.picked < 0 || f.picked >= len(items) {
		return nil, nil
	}
	it := items[f.picked]
	return &it, nil
}

func (f *fakeHost) OpenExternal(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	return nil
}

func quietRegistry(h host.Host) *Registry {
	r := NewRegistry(h)
	r.SetLogger(&log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: &bytes.Buffer{}}})
	return r
}

func newAtlassianServer(t *testing.T, mux map[string]http.HandlerFunc) (config.MapReader, *atlassian.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := mux[r.URL.Path]
		if !ok {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	cfg := config.MapReader{config.KeySuiteURL: srv.URL + "/", config.KeyEmail: "me@acme.test", config.KeyToken: "tok"}
	return cfg, atlassian.NewClient(atlassian.Options{Timeout: 5 * time.Second, Transport: http.DefaultTransport})
}

func myself(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte(`{"accountId":"acc-1","displayName":"Ada"}`))
}

func TestRegisterDefaultsAndResolve(t *testing.T) {
	r := quietRegistry(&fakeHost{})
	require.NoError(t, RegisterDefaults(r, config.MapReader{}, atlassian.NewClient(atlassian.Options{})))

	var ids []string
	for _, c := range r.List() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{OpenJira, OpenConfluence, SearchMyIssues, SearchMyPages}, ids)
	assert.Error(t, r.Register(Command{ID: OpenJira, Run: func(context.Context) error { return nil }}))

	cmd, err := r.Resolve("copilot-atlassian-tools.openJira")
	require.NoError(t, err)
	assert.Equal(t, OpenJira, cmd.ID)

	cmd, err = r.Resolve("searchMyPages")
	require.NoError(t, err)
	assert.Equal(t, SearchMyPages, cmd.ID)

	cmd, err = r.Resolve("confluence")
	require.NoError(t, err)
	assert.Equal(t, OpenConfluence, cmd.ID)

	_, err = r.Resolve("search")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = r.Resolve("qqqq")
	assert.ErrorContains(t, err, "no command matches")
}

func TestSearchRanksIdMatchesFirst(t *testing.T) {
	r := quietRegistry(&fakeHost{})
	require.NoError(t, RegisterDefaults(r, config.MapReader{}, atlassian.NewClient(atlassian.Options{})))

	hits := r.Search("issues", 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, SearchMyIssues, hits[0].ID)
	assert.Len(t, r.Search("", 2), 2)
}

func TestOpenCommands(t *testing.T) {
	fh := &fakeHost{}
	r := quietRegistry(fh)
	require.NoError(t, RegisterDefaults(r, config.MapReader{config.KeySuiteURL: "https://acme.atlassian.net/"}, atlassian.NewClient(atlassian.Options{})))

	require.NoError(t, r.Run(context.Background(), OpenJira))
	require.NoError(t, r.Run(context.Background(), OpenConfluence))
	assert.Equal(t, []string{"https://acme.atlassian.net/jira", "https://acme.atlassian.net/wiki"}, fh.opened)
}

func TestOpenJiraWithoutURLShowsConfigError(t *testing.T) {
	fh := &fakeHost{}
	r := quietRegistry(fh)
	require.NoError(t, RegisterDefaults(r, config.MapReader{}, atlassian.NewClient(atlassian.Options{})))

	err := r.Run(context.Background(), OpenJira)
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, fh.errors, 1)
	assert.Contains(t, fh.errors[0], "Atlassian Suite URL is not configured")
	assert.Empty(t, fh.opened)
}

func TestSearchMyIssuesOpensSelection(t *testing.T) {
	var gotJQL string
	cfg, cl := newAtlassianServer(t, map[string]http.HandlerFunc{
		"/rest/api/3/myself": myself,
		"/rest/api/3/search": func(w http.ResponseWriter, r *http.Request) {
			gotJQL = r.URL.Query().Get("jql")
			_, _ = w.Write([]byte(`{"issues":[
				{"key":"ABC-1","fields":{"summary":"Login broken","status":{"name":"Open"},"issuetype":{"name":"Bug"},"updated":"not-a-date"}},
				{"key":"ABC-2","fields":{"summary":"Docs","status":{"name":"In Progress"},"issuetype":{"name":"Task"},"priority":{"name":"High"},"updated":"2024-01-02T03:04:05.000+0000"}}]}`))
		},
	})
	fh := &fakeHost{picked: 1}
	r := quietRegistry(fh)
	require.NoError(t, RegisterDefaults(r, cfg, cl))

	require.NoError(t, r.Run(context.Background(), SearchMyIssues))

	assert.Equal(t, `assignee = "acc-1" AND resolution = Unresolved ORDER BY updated DESC`, gotJQL)
	assert.Equal(t, []string{"Fetching your Jira issues..."}, fh.statuses)
	assert.Equal(t, 1, fh.cleared)
	require.Len(t, fh.lastPick, 2)
	assert.Equal(t, "ABC-1: Login broken", fh.lastPick[0].Label)
	assert.Equal(t, "Open", fh.lastPick[0].Description)
	assert.Equal(t, "Bug | Priority: Not set | Updated: not-a-date", fh.lastPick[0].Detail)
	assert.True(t, strings.HasPrefix(fh.lastPick[1].Detail, "Task | Priority: High | Updated: 2024-01-0"))
	assert.Equal(t, "Found 2 open issues assigned to you", fh.pickOpts.Placeholder)
	assert.True(t, fh.pickOpts.MatchOnDescription)
	assert.True(t, fh.pickOpts.MatchOnDetail)

	require.Len(t, fh.opened, 1)
	assert.Equal(t, strings.TrimSuffix(cfg[config.KeySuiteURL], "/")+"/browse/ABC-2", fh.opened[0])
}

func TestSearchMyIssuesEmpty(t *testing.T) {
	cfg, cl := newAtlassianServer(t, map[string]http.HandlerFunc{
		"/rest/api/3/myself": myself,
		"/rest/api/3/search": func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"issues":[]}`)) },
	})
	fh := &fakeHost{}
	r := quietRegistry(fh)
	require.NoError(t, RegisterDefaults(r, cfg, cl))

	require.NoError(t, r.Run(context.Background(), SearchMyIssues))
	assert.Equal(t, []string{"No open issues assigned to you were found."}, fh.infos)
	assert.Nil(t, fh.lastPick)
}

func TestSearchMyIssuesForbiddenOffersDocs(t *testing.T) {
	cfg, cl := newAtlassianServer(t, map[string]http.HandlerFunc{
		"/rest/api/3/myself": myself,
		"/rest/api/3/search": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) },
	})
	fh := &fakeHost{choose: "Check Documentation"}
	r := quietRegistry(fh)
	require.NoError(t, RegisterDefaults(r, cfg, cl))

	err := r.Run(context.Background(), SearchMyIssues)
	assert.True(t, atlassian.IsKind(err, atlassian.KindForbidden))
	require.Len(t, fh.errors, 1)
	assert.Equal(t, "Permission denied (403): Your API token doesn't have sufficient permissions to access Jira issues.", fh.errors[0])
	assert.Equal(t, []string{"Check Documentation"}, fh.actions[0])
	assert.Equal(t, []string{atlassian.JiraPermissionsDocsURL}, fh.opened)
	assert.Equal(t, 1, fh.cleared)
}

func TestSearchMyPagesOpensSelection(t *testing.T) {
	cfg, cl := newAtlassianServer(t, map[string]http.HandlerFunc{
		"/rest/api/3/myself": myself,
		"/wiki/rest/api/content/search": func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Query().Get("cql"), `creator.accountId = "acc-1"`)
			_, _ = w.Write([]byte(`{"results":[{"id":"7","type":"page","title":"Notes",
				"space":{"key":"ME","name":"Mine"},
				"history":{"lastUpdated":{"when":"2024-05-01T00:00:00.000Z","by":{"displayName":"Ada"}}},
				"_links":{"webui":"/spaces/ME/pages/7"}}]}`))
		},
	})
	fh := &fakeHost{picked: 0}
	r := quietRegistry(fh)
	require.NoError(t, RegisterDefaults(r, cfg, cl))

	require.NoError(t, r.Run(context.Background(), SearchMyPages))
	require.Len(t, fh.lastPick, 1)
	assert.Equal(t, "Notes", fh.lastPick[0].Label)
	assert.Equal(t, "Mine", fh.lastPick[0].Description)
	assert.Contains(t, fh.lastPick[0].Detail, "by Ada")
	assert.Equal(t, []string{strings.TrimSuffix(cfg[config.KeySuiteURL], "/") + "/wiki/spaces/ME/pages/7"}, fh.opened)
}

func TestSearchMyPagesDismissed(t *testing.T) {
	cfg, cl := newAtlassianServer(t, map[string]http.HandlerFunc{
		"/rest/api/3/myself": myself,
		"/wiki/rest/api/content/search": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":[{"id":"7","title":"Notes","_links":{"webui":"/x"}}]}`))
		},
	})
	fh := &fakeHost{picked: -1}
	r := quietRegistry(fh)
	require.NoError(t, RegisterDefaults(r, cfg, cl))

	require.NoError(t, r.Run(context.Background(), SearchMyPages))
	assert.Empty(t, fh.opened)
	assert.Empty(t, fh.errors)
}

func TestRunRecoversPanicsAndPrefixesErrors(t *testing.T) {
	fh := &fakeHost{}
	r := quietRegistry(fh)
	require.NoError(t, r.Register(Command{ID: "x.panic", Run: func(context.Context) error { panic("kaboom") }}))
	require.NoError(t, r.Register(Command{ID: "x.fail", Run: func(context.Context) error { return errors.New("disk full") }}))

	err := r.Run(context.Background(), "x.panic")
	assert.ErrorContains(t, err, "kaboom")
	err = r.Run(context.Background(), "x.fail")
	assert.ErrorContains(t, err, "disk full")

	assert.Equal(t, []string{"Command error: panic: kaboom", "Command error: disk full"}, fh.errors)
	assert.Error(t, r.Run(context.Background(), "x.missing"))
}
