package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/golovatskygroup/atlassian-lens/internal/atlassian"
	"github.com/golovatskygroup/atlassian-lens/internal/config"
	"github.com/golovatskygroup/atlassian-lens/pkg/mcp"
)

const issuesPerKeyword = 5

// IssueSummary is the LLM-facing view of an issue.
type IssueSummary struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Reporter    string `json:"reporter,omitempty"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	Project     string `json:"project"`
	URL         string `json:"url"`
}

func summarizeIssue(issue atlassian.Issue, baseURL string) IssueSummary {
	return IssueSummary{
		Key:         issue.Key,
		Title:       issue.Fields.Summary,
		Description: atlassian.CleanDescription(issue.Fields.Description),
		Type:        issue.Fields.IssueType.Name,
		Status:      issue.Fields.Status.Name,
		Priority:    issue.PriorityName(),
		Assignee:    issue.AssigneeName(),
		Reporter:    issue.ReporterName(),
		Created:     issue.Fields.Created,
		Updated:     issue.Fields.Updated,
		Project:     issue.Fields.Project.Name,
		URL:         atlassian.IssueURL(baseURL, issue.Key),
	}
}

func (h *Handler) searchJira(ctx context.Context, in searchInput) (*mcp.CallToolResult, error) {
	keywords := NormalizeKeywords(in.Keywords)
	if len(keywords) == 0 {
		return textResult("No search keywords provided. Please specify keywords to search for Jira issues."), nil
	}
	creds, err := config.Resolve(h.cfg)
	if err != nil {
		return failureResult("Error searching Jira issues: " + err.Error()), nil
	}
	done := h.invocation(JiraSearchTool, keywords)

	// Service order is kept: Jira already ranks by last update per keyword.
	set := Aggregate(ctx, keywords, func(ctx context.Context, kw string, max int) ([]atlassian.Issue, error) {
		return h.issues.SearchIssues(ctx, creds, kw, max)
	}, AggregateOptions[atlassian.Issue]{
		PerKeyword: issuesPerKeyword,
		Key:        func(i atlassian.Issue) string { return i.Key },
	})
	done(set.TotalFound, len(set.Items), len(set.Failures))

	if set.AllFailed() {
		return failureResult("Error searching Jira issues: " + set.Failures[0].Message), nil
	}
	if len(set.Items) == 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "No Jira issues found for keywords: %s\n", strings.Join(keywords, ", "))
		appendFailures(&sb, set.Failures)
		return textResult(strings.TrimRight(sb.String(), "\n")), nil
	}

	summaries := make([]IssueSummary, 0, len(set.Items))
	for _, issue := range set.Items {
		summaries = append(summaries, summarizeIssue(issue, creds.BaseURL))
	}

	res := textResult(renderIssues(summaries, keywords, set.Failures))
	res.StructuredContent = resultSummary{
		TotalFound:      set.TotalFound,
		ResultsReturned: len(summaries),
		Keywords:        keywords,
		Failures:        set.Failures,
		Items:           summaries,
	}
	return res, nil
}

func renderIssues(issues []IssueSummary, keywords []string, failures []Failure) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d Jira issues for keywords: %s\n\n", len(issues), strings.Join(keywords, ", "))
	for _, is := range issues {
		priority := is.Priority
		if priority == "" {
			priority = "N/A"
		}
		fmt.Fprintf(&sb, "## %s: %s\n", is.Key, is.Title)
		fmt.Fprintf(&sb, "Type: %s | Status: %s | Priority: %s\n", is.Type, is.Status, priority)
		fmt.Fprintf(&sb, "Project: %s\n", is.Project)
		if is.Assignee != "" {
			fmt.Fprintf(&sb, "Assignee: %s\n", is.Assignee)
		}
		fmt.Fprintf(&sb, "[View in Jira](%s)\n\n", is.URL)
		if is.Description != "" {
			fmt.Fprintf(&sb, "**Description:**\n%s\n\n", is.Description)
		}
		sb.WriteString("---\n\n")
	}
	appendFailures(&sb, failures)
	return sb.String()
}
