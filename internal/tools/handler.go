// Package tools implements the AI-callable Jira and Confluence keyword search
// tools served over MCP.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/golovatskygroup/atlassian-lens/internal/atlassian"
	"github.com/golovatskygroup/atlassian-lens/internal/config"
	"github.com/golovatskygroup/atlassian-lens/pkg/mcp"
)

// Tool names as registered with the MCP client.
const (
	JiraSearchTool       = "copilot-atlassian-tools-jira-search"
	ConfluenceSearchTool = "copilot-atlassian-tools-confluence-search"
)

type IssueSearcher interface {
	SearchIssues(ctx context.Context, creds config.Credentials, keyword string, maxResults int) ([]atlassian.Issue, error)
}

type PageSearcher interface {
	SearchPages(ctx context.Context, creds config.Credentials, keyword string, maxResults int) ([]atlassian.Page, error)
}

// Handler serves tools/call for the search tools. Credentials are resolved
// from cfg on every invocation.
type Handler struct {
	cfg    config.Reader
	issues IssueSearcher
	pages  PageSearcher
	logger *log.Logger

	validatorOnce sync.Once
	validator     *argValidator
	validatorErr  error
}

// NewHandler wires the tools to their searchers; *atlassian.Client satisfies both.
func NewHandler(cfg config.Reader, issues IssueSearcher, pages PageSearcher) *Handler {
	return &Handler{cfg: cfg, issues: issues, pages: pages, logger: &log.DefaultLogger}
}

// SetLogger overrides the invocation logger.
func (h *Handler) SetLogger(l *log.Logger) {
	if l != nil {
		h.logger = l
	}
}

var keywordsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"keywords": {
			"type": ["array", "null"],
			"items": {"type": "string"},
			"description": "Search keywords. Each keyword is searched separately and results are merged. An empty or missing list returns a short notice and searches nothing."
		}
	}
}`)

// BuiltinTools returns the tools advertised in tools/list.
func (h *Handler) BuiltinTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        JiraSearchTool,
			Description: "Search Jira issues whose summary or description matches any of the given keywords. Returns up to 5 issues per keyword, de-duplicated, with type, status, priority, project, assignee, link and a cleaned description. Keywords that fail are listed separately; if every keyword fails, the result is an error carrying the first failure.",
			InputSchema: keywordsSchema,
		},
		{
			Name:        ConfluenceSearchTool,
			Description: "Search Confluence pages whose title or text matches any of the given keywords. Returns the 8 most recently updated unique pages (3 per keyword) with space, last editor, link and an excerpt. Keywords that fail are listed separately; if every keyword fails, the result is an error carrying the first failure.",
			InputSchema: keywordsSchema,
		},
	}
}

type searchInput struct {
	Keywords []string `json:"keywords"`
}

// Handle dispatches one tool call. Domain failures are returned as error
// results; the Go error is reserved for unknown tools.
func (h *Handler) Handle(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error) {
	if name != JiraSearchTool && name != ConfluenceSearchTool {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	h.validatorOnce.Do(func() {
		h.validator, h.validatorErr = newArgValidator(h.BuiltinTools())
	})
	if h.validatorErr != nil {
		return errorResult(h.validatorErr.Error()), nil
	}
	if err := h.validator.validate(name, args); err != nil {
		return errorResult(err.Error()), nil
	}
	var in searchInput
	if raw := bytes.TrimSpace(args); len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return errorResult("Invalid input: " + err.Error()), nil
		}
	}

	switch name {
	case JiraSearchTool:
		return h.searchJira(ctx, in)
	default:
		return h.searchConfluence(ctx, in)
	}
}

// InvocationMessage is the one-line description of a pending call.
func InvocationMessage(name string, keywords []string) string {
	joined := strings.Join(keywords, ", ")
	if name == JiraSearchTool {
		return fmt.Sprintf("Searching Jira for '%s'", joined)
	}
	return fmt.Sprintf("Searching confluence for '%s'", joined)
}

// invocation logs the start of a call and returns a logger-bound finisher.
func (h *Handler) invocation(name string, keywords []string) func(found, returned, failed int) {
	id := uuid.NewString()
	h.logger.Info().Str("invocation", id).Str("tool", name).Msg(InvocationMessage(name, keywords))
	return func(found, returned, failed int) {
		h.logger.Info().
			Str("invocation", id).
			Str("tool", name).
			Int("total_found", found).
			Int("returned", returned).
			Int("failed_keywords", failed).
			Msg("search finished")
	}
}

// resultSummary is attached to tool results as structuredContent.
type resultSummary struct {
	TotalFound      int       `json:"totalFound"`
	ResultsReturned int       `json:"resultsReturned"`
	Keywords        []string  `json:"keywords"`
	Failures        []Failure `json:"failures,omitempty"`
	Items           any       `json:"items"`
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: "Error: " + msg}}, IsError: true}
}

func failureResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

func appendFailures(sb *strings.Builder, failures []Failure) {
	if len(failures) == 0 {
		return
	}
	sb.WriteString("Some searches failed:\n")
	for _, f := range failures {
		fmt.Fprintf(sb, "- %s: %s\n", f.Keyword, f.Message)
	}
}
