package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p-%03d", i+1)
	}
	return out
}

func window(c Cursor, limit int, q url.Values) Window[string] {
	return Window[string]{
		Cursor: c,
		Limit:  limit,
		ID:     func(s string) string { return s },
		Path:   "/v1/profiles",
		Query:  q,
	}
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{Kind: "profile", Value: "550e8400-e29b-41d4-a716-446655440000"}
	got, err := DecodeCursor(c.Encode(), "profile")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != c {
		t.Fatalf("expected %+v, got %+v", c, got)
	}
	if strings.ContainsAny(Cursor{Kind: "profile", Value: "a+b/c=d"}.Encode(), "+/=") {
		t.Fatal("cursor must be URL safe")
	}
}

func TestDecodeCursorRejects(t *testing.T) {
	tests := map[string]string{
		"not base64":   "!!!",
		"no separator": "dGVzdA",
		"other kind":   Cursor{Kind: "item", Value: "x"}.Encode(),
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeCursor(in, "profile"); !errors.Is(err, ErrInvalidCursor) {
				t.Fatalf("expected ErrInvalidCursor, got %v", err)
			}
		})
	}
}

func TestDecodeCursorEmpty(t *testing.T) {
	c, err := DecodeCursor("", "profile")
	if err != nil || c.Kind != "profile" || c.Value != "" {
		t.Fatalf("unexpected result %+v, %v", c, err)
	}
}

func TestPaginate(t *testing.T) {
	items := ids(25)
	tests := []struct {
		name     string
		after    string
		limit    int
		first    string
		size     int
		wantNext bool
		wantPrev string // decoded prev cursor value; "-" means no prev cursor
	}{
		{"first page", "", 10, "p-001", 10, true, "-"},
		{"second page", "p-010", 10, "p-011", 10, true, ""},
		{"third page", "p-020", 10, "p-021", 5, false, "p-010"},
		{"unknown cursor restarts", "p-999", 10, "p-001", 10, true, "-"},
		{"limit larger than listing", "", 50, "p-001", 25, false, "-"},
		{"zero limit uses default", "", 0, "p-001", DefaultLimit, true, "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Paginate(items, window(Cursor{Kind: "profile", Value: tt.after}, tt.limit, nil))
			if len(page.Items) != tt.size {
				t.Fatalf("expected %d items, got %d", tt.size, len(page.Items))
			}
			if page.Items[0] != tt.first {
				t.Fatalf("expected first %s, got %s", tt.first, page.Items[0])
			}
			if page.Total != 25 {
				t.Fatalf("expected total 25, got %d", page.Total)
			}
			if (page.NextCursor != "") != tt.wantNext {
				t.Fatalf("next cursor presence mismatch: %q", page.NextCursor)
			}
			if tt.wantPrev == "-" {
				if page.PrevCursor != "" {
					t.Fatalf("expected no prev cursor, got %q", page.PrevCursor)
				}
				return
			}
			prev, err := DecodeCursor(page.PrevCursor, "profile")
			if err != nil {
				t.Fatalf("decode prev: %v", err)
			}
			if prev.Value != tt.wantPrev {
				t.Fatalf("expected prev %q, got %q", tt.wantPrev, prev.Value)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate([]string{}, window(Cursor{Kind: "profile"}, 10, nil))
	if len(page.Items) != 0 || page.NextCursor != "" || page.Link != "" {
		t.Fatalf("unexpected page for empty listing: %+v", page)
	}
}

func TestPaginateLinkHeaderKeepsQuery(t *testing.T) {
	q := url.Values{"skill": []string{"go"}}
	page := Paginate(ids(30), window(Cursor{Kind: "profile", Value: "p-010"}, 10, q))

	if !strings.Contains(page.Link, `rel="next"`) || !strings.Contains(page.Link, `rel="prev"`) {
		t.Fatalf("expected next and prev links, got %s", page.Link)
	}
	if !strings.Contains(page.Link, "skill=go") || !strings.Contains(page.Link, "limit=10") {
		t.Fatalf("expected preserved query in %s", page.Link)
	}
	if !strings.HasPrefix(page.Link, "</v1/profiles?") {
		t.Fatalf("unexpected link target: %s", page.Link)
	}
	if q.Get("cursor") != "" {
		t.Fatal("caller query must not be mutated")
	}
}

func TestParamsPageSize(t *testing.T) {
	tests := map[int]int{0: DefaultLimit, -5: DefaultLimit, 1: 1, 100: 100}
	for in, want := range tests {
		if got := (Params{Limit: in}).PageSize(); got != want {
			t.Fatalf("PageSize(%d) = %d, want %d", in, got, want)
		}
	}
}
