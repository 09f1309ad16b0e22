package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/atlassian-lens/internal/atlassian"
	"github.com/golovatskygroup/atlassian-lens/internal/config"
)

type fakeSearcher struct {
	mu       sync.Mutex
	calls    []string
	issues   map[string][]atlassian.Issue
	pages    map[string][]atlassian.Page
	failures map[string]error
}

func (f *fakeSearcher) record(kw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kw)
	return f.failures[kw]
}

func (f *fakeSearcher) SearchIssues(_ context.Context, _ config.Credentials, kw string, _ int) ([]atlassian.Issue, error) {
	if err := f.record(kw); err != nil {
		return nil, err
	}
	return f.issues[kw], nil
}

func (f *fakeSearcher) SearchPages(_ context.Context, _ config.Credentials, kw string, _ int) ([]atlassian.Page, error) {
	if err := f.record(kw); err != nil {
		return nil, err
	}
	return f.pages[kw], nil
}

var testConfig = config.MapReader{
	config.KeySuiteURL: "https://acme.atlassian.net/",
	config.KeyEmail:    "me@acme.test",
	config.KeyToken:    "tok",
}

func newTestHandler(cfg config.Reader, f *fakeSearcher) (*Handler, *bytes.Buffer) {
	var buf bytes.Buffer
	h := NewHandler(cfg, f, f)
	h.SetLogger(&log.Logger{Level: log.InfoLevel, Writer: &log.IOWriter{Writer: &buf}})
	return h, &buf
}

func resultText(t *testing.T, h *Handler, tool, args string) (string, bool, any) {
	t.Helper()
	res, err := h.Handle(context.Background(), tool, json.RawMessage(args))
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	return res.Content[0].Text, res.IsError, res.StructuredContent
}

func TestBuiltinToolsSchemas(t *testing.T) {
	h, _ := newTestHandler(testConfig, &fakeSearcher{})
	tools := h.BuiltinTools()
	require.Len(t, tools, 2)
	for _, tool := range tools {
		assert.True(t, json.Valid(tool.InputSchema), tool.Name)
		assert.Contains(t, tool.Description, "if every keyword fails, the result is an error", tool.Name)
	}
}

func TestHandleUnknownTool(t *testing.T) {
	h, _ := newTestHandler(testConfig, &fakeSearcher{})
	_, err := h.Handle(context.Background(), "nope", nil)
	require.Error(t, err)
}

func TestHandleRejectsInvalidArguments(t *testing.T) {
	f := &fakeSearcher{}
	h, _ := newTestHandler(testConfig, f)

	for _, args := range []string{`{"keywords":"login"}`, `{"keywords":[1,2]}`, `[]`} {
		text, isErr, _ := resultText(t, h, JiraSearchTool, args)
		assert.True(t, isErr, args)
		assert.True(t, strings.HasPrefix(text, "Error: "), text)
	}
	assert.Empty(t, f.calls)

	text, _, _ := resultText(t, h, ConfluenceSearchTool, `{"keywords":["ok",7]}`)
	assert.Contains(t, text, "/keywords/1")
}

func TestEmptyKeywordsShortCircuit(t *testing.T) {
	f := &fakeSearcher{}
	h, _ := newTestHandler(config.MapReader{}, f)

	text, isErr, _ := resultText(t, h, JiraSearchTool, `{"keywords":[]}`)
	assert.False(t, isErr)
	assert.Equal(t, "No search keywords provided. Please specify keywords to search for Jira issues.", text)

	text, isErr, _ = resultText(t, h, ConfluenceSearchTool, `{"keywords":["  "]}`)
	assert.False(t, isErr)
	assert.Equal(t, "No search keywords provided. Please specify keywords to search for Confluence pages.", text)

	for _, args := range []string{`{}`, `{"keywords":null}`, `null`, ``} {
		text, isErr, _ = resultText(t, h, JiraSearchTool, args)
		assert.False(t, isErr, args)
		assert.Equal(t, "No search keywords provided. Please specify keywords to search for Jira issues.", text, args)

		text, isErr, _ = resultText(t, h, ConfluenceSearchTool, args)
		assert.False(t, isErr, args)
		assert.Equal(t, "No search keywords provided. Please specify keywords to search for Confluence pages.", text, args)
	}
	assert.Empty(t, f.calls)
}

func TestMissingCredentialsMakeNoCalls(t *testing.T) {
	f := &fakeSearcher{}
	h, _ := newTestHandler(config.MapReader{config.KeySuiteURL: "https://acme.atlassian.net"}, f)

	text, isErr, _ := resultText(t, h, JiraSearchTool, `{"keywords":["login"]}`)
	assert.True(t, isErr)
	assert.Contains(t, text, "is not configured")
	assert.Empty(t, f.calls)
}

func TestJiraSearchRendersIssues(t *testing.T) {
	f := &fakeSearcher{issues: map[string][]atlassian.Issue{
		"login": {{
			Key: "ABC-1",
			Fields: atlassian.IssueFields{
				Summary:     "Login broken",
				Description: json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"SSO fails"}]}]}`),
				IssueType:   atlassian.IssueType{Name: "Bug"},
				Status:      atlassian.Status{Name: "Open"},
				Project:     atlassian.Project{Key: "ABC", Name: "Alpha"},
				Assignee:    &atlassian.User{DisplayName: "Ada"},
			},
		}},
		"sso": {{
			Key: "ABC-1",
			Fields: atlassian.IssueFields{Summary: "Login broken"},
		}, {
			Key: "ABC-2",
			Fields: atlassian.IssueFields{
				Summary:   "SSO docs",
				IssueType: atlassian.IssueType{Name: "Task"},
				Status:    atlassian.Status{Name: "Done"},
				Priority:  &atlassian.Priority{Name: "High"},
				Project:   atlassian.Project{Name: "Alpha"},
			},
		}},
	}}
	h, logs := newTestHandler(testConfig, f)

	text, isErr, structured := resultText(t, h, JiraSearchTool, `{"keywords":["login","sso"]}`)
	require.False(t, isErr)

	want := "Found 2 Jira issues for keywords: login, sso\n\n" +
		"## ABC-1: Login broken\n" +
		"Type: Bug | Status: Open | Priority: N/A\n" +
		"Project: Alpha\n" +
		"Assignee: Ada\n" +
		"[View in Jira](https://acme.atlassian.net/browse/ABC-1)\n\n" +
		"**Description:**\nSSO fails\n\n" +
		"---\n\n" +
		"## ABC-2: SSO docs\n" +
		"Type: Task | Status: Done | Priority: High\n" +
		"Project: Alpha\n" +
		"[View in Jira](https://acme.atlassian.net/browse/ABC-2)\n\n" +
		"---\n\n"
	assert.Equal(t, want, text)

	summary, ok := structured.(resultSummary)
	require.True(t, ok)
	assert.Equal(t, 2, summary.TotalFound)
	assert.Equal(t, 2, summary.ResultsReturned)
	assert.Equal(t, []string{"login", "sso"}, summary.Keywords)

	assert.Contains(t, logs.String(), "Searching Jira for 'login, sso'")
	assert.Contains(t, logs.String(), `"invocation"`)
	assert.NotContains(t, logs.String(), "tok")
}

func TestJiraSearchNoResults(t *testing.T) {
	h, _ := newTestHandler(testConfig, &fakeSearcher{})
	text, isErr, _ := resultText(t, h, JiraSearchTool, `{"keywords":["zzz","yyy"]}`)
	assert.False(t, isErr)
	assert.Equal(t, "No Jira issues found for keywords: zzz, yyy", text)
}

func TestJiraSearchAllKeywordsFail(t *testing.T) {
	f := &fakeSearcher{failures: map[string]error{
		"a": errors.New("Authentication failed. Your Atlassian token may be invalid or expired."),
		"b": errors.New("Authentication failed. Your Atlassian token may be invalid or expired."),
	}}
	h, _ := newTestHandler(testConfig, f)

	text, isErr, _ := resultText(t, h, JiraSearchTool, `{"keywords":["a","b"]}`)
	assert.True(t, isErr)
	assert.Equal(t, "Error searching Jira issues: Authentication failed. Your Atlassian token may be invalid or expired.", text)
}

func TestConfluenceSearchPartialFailure(t *testing.T) {
	f := &fakeSearcher{
		pages: map[string][]atlassian.Page{
			"deploy": {{ID: "1", Title: "Runbook", SpaceKey: "OPS", SpaceName: "Operations", LastUpdated: "2024-03-01T10:00:00.000Z", LastUpdatedBy: "Ada", URL: "https://acme.atlassian.net/wiki/x", Excerpt: "Deploy steps"}},
		},
		failures: map[string]error{"bad\"": errors.New("CQL syntax error: unexpected token")},
	}
	h, _ := newTestHandler(testConfig, f)

	text, isErr, structured := resultText(t, h, ConfluenceSearchTool, `{"keywords":["deploy","bad\""]}`)
	require.False(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Found 1 Confluence pages for keywords: deploy, bad\"\n\n## Runbook\n"))
	assert.Contains(t, text, "Space: Operations (OPS)\n")
	assert.Contains(t, text, "Last updated: 2024-03-01T10:00:00.000Z by Ada\n")
	assert.Contains(t, text, "[View in Confluence](https://acme.atlassian.net/wiki/x)\n\n**Excerpt:**\nDeploy steps\n\n---\n\n")
	assert.Contains(t, text, "Some searches failed:\n- bad\": CQL syntax error: unexpected token\n")

	summary := structured.(resultSummary)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "bad\"", summary.Failures[0].Keyword)
}

func TestConfluenceSearchEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wiki/rest/api/content/search" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "3" {
			t.Fatalf("unexpected limit: %s", r.URL.Query().Get("limit"))
		}
		kw := "alpha"
		if strings.Contains(r.URL.Query().Get("cql"), "beta") {
			kw = "beta"
		}
		var body string
		if kw == "alpha" {
			body = `{"results":[
				{"id":"1","type":"page","title":"Old","version":{"when":"2023-01-01T00:00:00.000Z"},"_links":{"webui":"/p/1"}},
				{"id":"2","type":"page","title":"Shared","version":{"when":"2024-02-01T00:00:00.000Z"},"_links":{"webui":"/p/2"}}]}`
		} else {
			body = `{"results":[
				{"id":"2","type":"page","title":"Shared","version":{"when":"2024-02-01T00:00:00.000Z"},"_links":{"webui":"/p/2"}},
				{"id":"3","type":"page","title":"Newest","body":{"view":{"value":"<p>fresh</p>"}},"version":{"when":"2024-06-01T00:00:00.000Z","by":{"displayName":"Bob"}},"_links":{"webui":"/p/3"}}]}`
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := config.MapReader{config.KeySuiteURL: srv.URL, config.KeyEmail: "me@acme.test", config.KeyToken: "tok"}
	cl := atlassian.NewClient(atlassian.Options{Timeout: 5 * time.Second, Transport: http.DefaultTransport})
	h := NewHandler(cfg, cl, cl)
	h.SetLogger(&log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: &bytes.Buffer{}}})

	res, err := h.Handle(context.Background(), ConfluenceSearchTool, json.RawMessage(`{"keywords":["alpha","beta"]}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	summary := res.StructuredContent.(resultSummary)
	pages := summary.Items.([]atlassian.Page)
	require.Len(t, pages, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{pages[0].ID, pages[1].ID, pages[2].ID})
	assert.Equal(t, "fresh", pages[0].Excerpt)
	assert.Equal(t, srv.URL+"/wiki/p/3", pages[0].URL)
}

func TestInvocationMessage(t *testing.T) {
	assert.Equal(t, "Searching Jira for 'a, b'", InvocationMessage(JiraSearchTool, []string{"a", "b"}))
	assert.Equal(t, "Searching confluence for 'x'", InvocationMessage(ConfluenceSearchTool, []string{"x"}))
}
