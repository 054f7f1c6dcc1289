package pagination

import (
	"net/url"
	"strconv"
)

// Page is one window over an ordered listing.
type Page[T any] struct {
	Items      []T
	Total      int
	NextCursor string
	PrevCursor string
	Link       string
}

// Window describes how to cut a page out of a listing.
type Window[T any] struct {
	Cursor Cursor
	Limit  int
	// ID returns the stable key stored in cursors.
	ID func(T) string
	// Path and Query build the RFC 8288 Link header.
	Path  string
	Query url.Values
}

// Paginate returns the items following w.Cursor. A cursor pointing at an
// item that no longer exists restarts from the beginning.
func Paginate[T any](items []T, w Window[T]) Page[T] {
	total := len(items)
	limit := w.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	start := 0
	if w.Cursor.Value != "" {
		for i, item := range items {
			if w.ID(item) == w.Cursor.Value {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, total)
	window := items[start:end]

	var next, prev string
	if end < total && len(window) > 0 {
		next = Cursor{Kind: w.Cursor.Kind, Value: w.ID(window[len(window)-1])}.Encode()
	}
	if start > 0 {
		prevValue := ""
		if start > limit {
			prevValue = w.ID(items[start-limit-1])
		}
		prev = Cursor{Kind: w.Cursor.Kind, Value: prevValue}.Encode()
	}

	q := cloneValues(w.Query)
	q.Set("limit", strconv.Itoa(limit))

	return Page[T]{
		Items:      window,
		Total:      total,
		NextCursor: next,
		PrevCursor: prev,
		Link:       BuildLinkHeader(w.Path, q, next, prev),
	}
}
