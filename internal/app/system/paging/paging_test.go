package paging

import (
	"net/http/httptest"
	"testing"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type row struct {
	Key string
	ID  primitive.ObjectID
}

func rows(keys ...string) []row {
	out := make([]row, len(keys))
	for i, k := range keys {
		out[i] = row{Key: k, ID: primitive.NewObjectID()}
	}
	return out
}

func keyOf(r row) string             { return r.Key }
func idOf(r row) primitive.ObjectID { return r.ID }

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", DefaultLimit},
		{"?limit=10", 10},
		{"?limit=0", DefaultLimit},
		{"?limit=-3", DefaultLimit},
		{"?limit=abc", DefaultLimit},
		{"?limit=1000", MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/courses"+tt.query, nil)
			if got := ParseLimit(r); got != tt.want {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestNewKeyset(t *testing.T) {
	valid := wafflemongo.EncodeCursor("b", primitive.NewObjectID())

	tests := []struct {
		name       string
		before     string
		after      string
		limit      int
		wantDir    Direction
		wantOrder  int
		wantCursor bool
		wantLimit  int
	}{
		{"first page", "", "", 0, Forward, 1, false, DefaultLimit},
		{"after cursor", "", valid, 5, Forward, 1, true, 5},
		{"before cursor", valid, "", 5, Backward, -1, true, 5},
		{"before takes precedence", valid, valid, 5, Backward, -1, true, 5},
		{"garbage cursor ignored", "", "%%%", 5, Forward, 1, false, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewKeyset(tt.before, tt.after, tt.limit)
			if got.Direction != tt.wantDir {
				t.Errorf("Direction = %v, want %v", got.Direction, tt.wantDir)
			}
			if got.SortOrder != tt.wantOrder {
				t.Errorf("SortOrder = %v, want %v", got.SortOrder, tt.wantOrder)
			}
			if (got.Cursor != nil) != tt.wantCursor {
				t.Errorf("Cursor set = %v, want %v", got.Cursor != nil, tt.wantCursor)
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", got.Limit, tt.wantLimit)
			}
			if tt.wantCursor && got.Window("title_ci") == nil {
				t.Error("expected a cursor window")
			}
			if !tt.wantCursor && got.Window("title_ci") != nil {
				t.Error("expected no cursor window")
			}
		})
	}
}

func TestFindOptions(t *testing.T) {
	opts := NewKeyset("", "", 3).FindOptions("title_ci")
	if opts.Limit == nil || *opts.Limit != 4 {
		t.Errorf("Limit = %v, want 4", opts.Limit)
	}
}

func TestBuild(t *testing.T) {
	cursor := wafflemongo.EncodeCursor("m", primitive.NewObjectID())

	tests := []struct {
		name     string
		keyset   Keyset
		rows     []row
		wantKeys []string
		wantNext bool
		wantPrev bool
	}{
		{
			name:     "first page without extra",
			keyset:   NewKeyset("", "", 3),
			rows:     rows("a", "b"),
			wantKeys: []string{"a", "b"},
		},
		{
			name:     "first page with extra",
			keyset:   NewKeyset("", "", 3),
			rows:     rows("a", "b", "c", "d"),
			wantKeys: []string{"a", "b", "c"},
			wantNext: true,
		},
		{
			name:     "forward page with extra",
			keyset:   NewKeyset("", cursor, 2),
			rows:     rows("n", "o", "p"),
			wantKeys: []string{"n", "o"},
			wantNext: true,
			wantPrev: true,
		},
		{
			name:     "forward last page",
			keyset:   NewKeyset("", cursor, 2),
			rows:     rows("n"),
			wantKeys: []string{"n"},
			wantPrev: true,
		},
		{
			name:     "backward page with extra",
			keyset:   NewKeyset(cursor, "", 2),
			rows:     rows("l", "k", "j"),
			wantKeys: []string{"k", "l"},
			wantNext: true,
			wantPrev: true,
		},
		{
			name:     "backward first page",
			keyset:   NewKeyset(cursor, "", 2),
			rows:     rows("b", "a"),
			wantKeys: []string{"a", "b"},
			wantNext: true,
		},
		{
			name:     "empty",
			keyset:   NewKeyset("", "", 3),
			rows:     nil,
			wantKeys: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build(tt.keyset, tt.rows, keyOf, idOf)
			if p.Items == nil {
				t.Fatal("Items should never be nil")
			}
			if len(p.Items) != len(tt.wantKeys) {
				t.Fatalf("len(Items) = %d, want %d", len(p.Items), len(tt.wantKeys))
			}
			for i, k := range tt.wantKeys {
				if p.Items[i].Key != k {
					t.Errorf("Items[%d] = %q, want %q", i, p.Items[i].Key, k)
				}
			}
			if (p.Next != "") != tt.wantNext {
				t.Errorf("Next set = %v, want %v", p.Next != "", tt.wantNext)
			}
			if (p.Prev != "") != tt.wantPrev {
				t.Errorf("Prev set = %v, want %v", p.Prev != "", tt.wantPrev)
			}
		})
	}
}

func TestReverse(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		want  []int
	}{
		{"empty", []int{}, []int{}},
		{"single", []int{1}, []int{1}},
		{"two", []int{1, 2}, []int{2, 1}},
		{"three", []int{1, 2, 3}, []int{3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := append([]int{}, tt.input...)
			Reverse(rows)
			for i, v := range rows {
				if v != tt.want[i] {
					t.Errorf("Reverse() got %v, want %v", rows, tt.want)
					break
				}
			}
		})
	}
}
