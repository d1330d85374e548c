// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size used when the caller does not ask for one.
const DefaultLimit = 24

// MaxLimit caps the ?limit= query parameter.
const MaxLimit = 100

// ParseLimit extracts the "limit" query parameter, clamped to [1, MaxLimit].
// Returns DefaultLimit if not present or invalid.
func ParseLimit(r *http.Request) int {
	s := query.Get(r, "limit")
	if s == "" {
		return DefaultLimit
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Direction indicates the pagination direction.
type Direction int

const (
	Forward  Direction = iota // Default: sort ascending, use "gt" for cursor
	Backward                  // Sort descending, use "lt" for cursor
)

// Keyset describes one page request over a (sortField, _id) ordering.
type Keyset struct {
	Direction Direction
	SortOrder int // 1 for ascending, -1 for descending
	Cursor    *wafflemongo.Cursor
	Limit     int
}

// NewKeyset determines pagination direction and decodes the cursor.
// before takes precedence over after. An undecodable cursor is ignored and
// yields the first page in that direction. limit <= 0 uses DefaultLimit.
func NewKeyset(before, after string, limit int) Keyset {
	if limit <= 0 {
		limit = DefaultLimit
	}
	k := Keyset{Direction: Forward, SortOrder: 1, Limit: limit}

	if before != "" {
		k.Direction = Backward
		k.SortOrder = -1
		if c, ok := wafflemongo.DecodeCursor(before); ok {
			k.Cursor = &c
		}
	} else if after != "" {
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			k.Cursor = &c
		}
	}
	return k
}

// FindOptions returns sort and limit for the page, fetching one extra row
// to detect whether another page exists.
func (k Keyset) FindOptions(sortField string) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{
			{Key: sortField, Value: k.SortOrder},
			{Key: "_id", Value: k.SortOrder},
		}).
		SetLimit(int64(k.Limit + 1))
}

// Window returns the cursor condition for the query filter, or nil on the
// first page.
func (k Keyset) Window(sortField string) bson.M {
	if k.Cursor == nil {
		return nil
	}
	dir := "gt"
	if k.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, k.Cursor.CI, k.Cursor.ID)
}

// Page is one keyset page as returned to API callers.
type Page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
	Prev  string `json:"prev,omitempty"`
}

// Build trims rows fetched with FindOptions to the page size, restores
// ascending order for backward pages, and sets Next/Prev cursors only when
// such a page exists.
func Build[T any](k Keyset, rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) Page[T] {
	more := len(rows) > k.Limit
	if more {
		rows = rows[:k.Limit]
	}

	var hasPrev, hasNext bool
	if k.Direction == Backward {
		Reverse(rows)
		hasPrev = more
		hasNext = true // we came from somewhere
	} else {
		hasNext = more
		hasPrev = k.Cursor != nil
	}

	p := Page[T]{Items: rows}
	if p.Items == nil {
		p.Items = []T{}
	}
	if len(rows) == 0 {
		return p
	}
	first, last := rows[0], rows[len(rows)-1]
	if hasPrev {
		p.Prev = wafflemongo.EncodeCursor(keyFn(first), idFn(first))
	}
	if hasNext {
		p.Next = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
	}
	return p
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
