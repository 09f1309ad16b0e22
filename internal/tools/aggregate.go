package tools

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SearchFunc runs one keyword search returning at most max items.
type SearchFunc[T any] func(ctx context.Context, keyword string, max int) ([]T, error)

// Failure records a keyword whose search failed. It contributes no items.
type Failure struct {
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}

// SearchResultSet is the merged outcome of a multi-keyword search.
// TotalFound counts unique items before Limit was applied.
type SearchResultSet[T any] struct {
	Items      []T
	TotalFound int
	Keywords   []string
	Failures   []Failure
}

// AllFailed reports whether every keyword failed and nothing was found.
func (r SearchResultSet[T]) AllFailed() bool {
	return len(r.Items) == 0 && len(r.Failures) > 0 && len(r.Failures) == len(r.Keywords)
}

type AggregateOptions[T any] struct {
	// PerKeyword is passed to every search as its result cap.
	PerKeyword int
	// Key is the de-duplication key. The first occurrence in keyword order wins.
	Key func(T) string
	// Less, when set, stable-sorts the merged items.
	Less func(a, b T) bool
	// Limit caps the merged items; zero means no cap.
	Limit int
}

// NormalizeKeywords trims keywords and drops blank ones.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Aggregate runs search for every keyword concurrently, then merges results in
// keyword order. A failing keyword is recorded in Failures and never aborts
// the others.
func Aggregate[T any](ctx context.Context, keywords []string, search SearchFunc[T], opts AggregateOptions[T]) SearchResultSet[T] {
	results := make([][]T, len(keywords))
	errs := make([]error, len(keywords))

	var g errgroup.Group
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			results[i], errs[i] = search(ctx, kw, opts.PerKeyword)
			return nil
		})
	}
	_ = g.Wait()

	set := SearchResultSet[T]{Items: []T{}, Keywords: keywords}
	seen := make(map[string]struct{})
	for i, items := range results {
		if errs[i] != nil {
			set.Failures = append(set.Failures, Failure{Keyword: keywords[i], Message: errs[i].Error()})
			continue
		}
		for _, it := range items {
			k := opts.Key(it)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			set.Items = append(set.Items, it)
		}
	}

	set.TotalFound = len(set.Items)
	if opts.Less != nil {
		sort.SliceStable(set.Items, func(i, j int) bool { return opts.Less(set.Items[i], set.Items[j]) })
	}
	if opts.Limit > 0 && len(set.Items) > opts.Limit {
		set.Items = set.Items[:opts.Limit]
	}
	return set
}
