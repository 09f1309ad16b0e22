package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/golovatskygroup/atlassian-lens/internal/atlassian"
	"github.com/golovatskygroup/atlassian-lens/internal/config"
	"github.com/golovatskygroup/atlassian-lens/pkg/mcp"
)

const (
	pagesPerKeyword = 3
	// MaxTotalPageResults caps the merged page list.
	MaxTotalPageResults = 8
)

// newerPage orders pages by LastUpdated, newest first. Unparseable
// timestamps sort after parseable ones.
func newerPage(a, b atlassian.Page) bool {
	ta, oka := atlassian.ParseTimestamp(a.LastUpdated)
	tb, okb := atlassian.ParseTimestamp(b.LastUpdated)
	switch {
	case oka && okb:
		return ta.After(tb)
	case oka != okb:
		return oka
	default:
		return a.LastUpdated > b.LastUpdated
	}
}

// AggregatePages merges per-keyword page searches: de-duplicated by id,
// newest first, capped at MaxTotalPageResults.
func AggregatePages(ctx context.Context, keywords []string, search SearchFunc[atlassian.Page]) SearchResultSet[atlassian.Page] {
	return Aggregate(ctx, keywords, search, AggregateOptions[atlassian.Page]{
		PerKeyword: pagesPerKeyword,
		Key:        func(p atlassian.Page) string { return p.ID },
		Less:       newerPage,
		Limit:      MaxTotalPageResults,
	})
}

func (h *Handler) searchConfluence(ctx context.Context, in searchInput) (*mcp.CallToolResult, error) {
	keywords := NormalizeKeywords(in.Keywords)
	if len(keywords) == 0 {
		return textResult("No search keywords provided. Please specify keywords to search for Confluence pages."), nil
	}
	creds, err := config.Resolve(h.cfg)
	if err != nil {
		return failureResult("Error searching Confluence pages: " + err.Error()), nil
	}
	done := h.invocation(ConfluenceSearchTool, keywords)

	set := AggregatePages(ctx, keywords, func(ctx context.Context, kw string, max int) ([]atlassian.Page, error) {
		return h.pages.SearchPages(ctx, creds, kw, max)
	})
	done(set.TotalFound, len(set.Items), len(set.Failures))

	if set.AllFailed() {
		return failureResult("Error searching Confluence pages: " + set.Failures[0].Message), nil
	}
	if len(set.Items) == 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "No Confluence pages found for keywords: %s\n", strings.Join(keywords, ", "))
		appendFailures(&sb, set.Failures)
		return textResult(strings.TrimRight(sb.String(), "\n")), nil
	}

	res := textResult(renderPages(set))
	res.StructuredContent = resultSummary{
		TotalFound:      set.TotalFound,
		ResultsReturned: len(set.Items),
		Keywords:        keywords,
		Failures:        set.Failures,
		Items:           set.Items,
	}
	return res, nil
}

func renderPages(set SearchResultSet[atlassian.Page]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d Confluence pages for keywords: %s", set.TotalFound, strings.Join(set.Keywords, ", "))
	if len(set.Items) < set.TotalFound {
		fmt.Fprintf(&sb, " (showing the %d most recently updated)", len(set.Items))
	}
	sb.WriteString("\n\n")

	for _, p := range set.Items {
		fmt.Fprintf(&sb, "## %s\n", p.Title)
		if p.SpaceName != "" || p.SpaceKey != "" {
			fmt.Fprintf(&sb, "Space: %s (%s)\n", p.SpaceName, p.SpaceKey)
		}
		if p.LastUpdated != "" {
			sb.WriteString("Last updated: " + p.LastUpdated)
			if p.LastUpdatedBy != "" {
				sb.WriteString(" by " + p.LastUpdatedBy)
			}
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[View in Confluence](%s)\n\n", p.URL)
		if p.Excerpt != "" {
			fmt.Fprintf(&sb, "**Excerpt:**\n%s\n\n", p.Excerpt)
		}
		sb.WriteString("---\n\n")
	}
	appendFailures(&sb, set.Failures)
	return sb.String()
}
