// Package library implements a user's course library: purchase
// reconciliation, lesson progress, the daily streak counter, and the
// denormalized view returned to API callers.
//
// The state transitions in this file operate on an in-memory models.User and
// never touch storage; Service wires them to the user store.
package library

import (
	"slices"
	"time"

	"github.com/dalemusser/bayit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item types accepted in a checkout request.
const (
	ItemTypeCourse = "course"
	ItemTypeBundle = "bundle"
)

// CartItem is one line of a checkout request. Bundles carry the ids of the
// courses they contain; a bundle with no Courses is resolved by the caller.
type CartItem struct {
	ID       primitive.ObjectID
	ItemType string
	Courses  []primitive.ObjectID
}

// IsBundle reports whether the item expands to several courses.
func (c CartItem) IsBundle() bool {
	return c.ItemType == ItemTypeBundle
}

// Library wraps a user record with an owned-course index kept in sync with
// Purchases. All mutation goes through its methods.
type Library struct {
	user  *models.User
	owned map[primitive.ObjectID]int // course id -> index into user.Purchases
}

// Open builds a Library over u. u is modified in place by later calls.
func Open(u *models.User) *Library {
	l := &Library{
		user:  u,
		owned: make(map[primitive.ObjectID]int, len(u.Purchases)),
	}
	for i, p := range u.Purchases {
		if _, dup := l.owned[p.CourseID]; !dup {
			l.owned[p.CourseID] = i
		}
	}
	return l
}

// User returns the wrapped record.
func (l *Library) User() *models.User { return l.user }

// Owns reports whether the user has a purchase entry for courseID.
func (l *Library) Owns(courseID primitive.ObjectID) bool {
	_, ok := l.owned[courseID]
	return ok
}

// Entry returns the purchase entry for courseID.
func (l *Library) Entry(courseID primitive.ObjectID) (*models.PurchaseEntry, bool) {
	i, ok := l.owned[courseID]
	if !ok {
		return nil, false
	}
	return &l.user.Purchases[i], true
}

// enroll appends a fresh purchase entry and indexes it.
func (l *Library) enroll(courseID primitive.ObjectID, now time.Time) {
	l.user.Purchases = append(l.user.Purchases, models.PurchaseEntry{
		CourseID:         courseID,
		CompletedLessons: []string{},
		EnrolledAt:       now,
		LastViewed:       now,
	})
	l.owned[courseID] = len(l.user.Purchases) - 1
}

// touch records an activity event on the streak counter.
func (l *Library) touch(now time.Time) {
	l.user.Streak, l.user.LastActivity = EvaluateStreak(l.user.LastActivity, l.user.Streak, now)
}

// ExpandItems flattens cart items into course ids, bundles first expanded to
// their courses. Order is preserved and repeats are dropped.
func ExpandItems(items []CartItem) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(items))
	out := make([]primitive.ObjectID, 0, len(items))
	add := func(id primitive.ObjectID) {
		if id.IsZero() {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, it := range items {
		if it.IsBundle() {
			for _, c := range it.Courses {
				add(c)
			}
			continue
		}
		add(it.ID)
	}
	return out
}

// Reconcile merges the requested course ids into Purchases. Owned courses are
// skipped silently. The streak is evaluated only when something was added, and
// the cart is emptied either way. It returns the ids that were added.
func (l *Library) Reconcile(courseIDs []primitive.ObjectID, now time.Time) ([]primitive.ObjectID, error) {
	if len(courseIDs) == 0 {
		return nil, ErrEmptyCart
	}
	var added []primitive.ObjectID
	for _, id := range courseIDs {
		if id.IsZero() || l.Owns(id) {
			continue
		}
		l.enroll(id, now)
		added = append(added, id)
	}
	if len(added) > 0 {
		l.touch(now)
	}
	l.user.Cart = []primitive.ObjectID{}
	return added, nil
}

// PurchaseOne buys a single course. Unlike Reconcile it rejects a course the
// user already owns. The purchased course is dropped from the cart; other
// cart items stay.
func (l *Library) PurchaseOne(courseID primitive.ObjectID, now time.Time) error {
	if courseID.IsZero() {
		return ErrNotFound
	}
	if l.Owns(courseID) {
		return ErrAlreadyOwned
	}
	l.enroll(courseID, now)
	l.touch(now)
	cart := make([]primitive.ObjectID, 0, len(l.user.Cart))
	for _, id := range l.user.Cart {
		if id != courseID {
			cart = append(cart, id)
		}
	}
	l.user.Cart = cart
	return nil
}

// MarkLessonComplete records lessonID as complete in the courseID entry.
// It returns true if the lesson was newly added. Every successful call counts
// as activity for the streak, even when the lesson was already complete.
func (l *Library) MarkLessonComplete(courseID primitive.ObjectID, lessonID string, now time.Time) (bool, error) {
	e, ok := l.Entry(courseID)
	if !ok {
		return false, ErrNotEnrolled
	}
	added := false
	if !slices.Contains(e.CompletedLessons, lessonID) {
		e.CompletedLessons = append(e.CompletedLessons, lessonID)
		e.LastViewed = now
		added = true
	}
	l.touch(now)
	return added, nil
}

// SetCart replaces the cart wholesale. Repeats and zero ids are dropped.
func (l *Library) SetCart(courseIDs []primitive.ObjectID) {
	cart := make([]primitive.ObjectID, 0, len(courseIDs))
	for _, id := range courseIDs {
		if id.IsZero() || slices.Contains(cart, id) {
			continue
		}
		cart = append(cart, id)
	}
	l.user.Cart = cart
}
