// Package host defines the UI capabilities commands depend on and a terminal
// implementation of them.
package host

import (
	"context"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Notifier surfaces messages to the user.
type Notifier interface {
	ShowInfo(msg string)
	// ShowError displays msg with optional action buttons and returns the
	// chosen action, or "" when dismissed.
	ShowError(ctx context.Context, msg string, actions ...string) (string, error)
	// SetStatus shows a transient status message until stop is called.
	SetStatus(msg string) (stop func())
}

// QuickPickItem is one selectable row. Value carries the caller's payload.
type QuickPickItem struct {
	Label       string
	Description string
	Detail      string
	Value       any
}

type QuickPickOptions struct {
	Placeholder        string
	MatchOnDescription bool
	MatchOnDetail      bool
}

// QuickPicker presents a selectable list. A nil item means the user dismissed it.
type QuickPicker interface {
	ShowQuickPick(ctx context.Context, items []QuickPickItem, opts QuickPickOptions) (*QuickPickItem, error)
}

type LinkOpener interface {
	OpenExternal(ctx context.Context, url string) error
}

// Host bundles every capability a command may use.
type Host interface {
	Notifier
	QuickPicker
	LinkOpener
}

// FilterItems keeps items whose label (and optionally description and detail)
// fuzzy-match query, best label matches first. An empty query keeps everything.
func FilterItems(items []QuickPickItem, query string, opts QuickPickOptions) []QuickPickItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	type scored struct {
		item  QuickPickItem
		score int
	}
	var hits []scored
	for _, it := range items {
		score := 0
		if strings.Contains(strings.ToLower(it.Label), strings.ToLower(query)) {
			score += 100
		}
		if fuzzy.MatchNormalizedFold(query, it.Label) {
			score += 50
		}
		if opts.MatchOnDescription && fuzzy.MatchNormalizedFold(query, it.Description) {
			score += 30
		}
		if opts.MatchOnDetail && fuzzy.MatchNormalizedFold(query, it.Detail) {
			score += 20
		}
		if score > 0 {
			hits = append(hits, scored{it, score})
		}
	}

	// Stable insertion sort keeps original order among equal scores.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].score > hits[j-1].score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]QuickPickItem, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.item)
	}
	return out
}
