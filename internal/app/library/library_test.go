package library

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/bayit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var t0 = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newUser() *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Purchases: []models.PurchaseEntry{},
		Cart:      []primitive.ObjectID{},
	}
}

func countCourse(u *models.User, id primitive.ObjectID) int {
	n := 0
	for _, p := range u.Purchases {
		if p.CourseID == id {
			n++
		}
	}
	return n
}

func TestExpandItems(t *testing.T) {
	c1, c2, c3 := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	tests := []struct {
		name  string
		items []CartItem
		want  []primitive.ObjectID
	}{
		{"empty", nil, []primitive.ObjectID{}},
		{"single course", []CartItem{{ID: c1, ItemType: ItemTypeCourse}}, []primitive.ObjectID{c1}},
		{
			"course plus bundle",
			[]CartItem{
				{ID: c1, ItemType: ItemTypeCourse},
				{ID: primitive.NewObjectID(), ItemType: ItemTypeBundle, Courses: []primitive.ObjectID{c2, c3}},
			},
			[]primitive.ObjectID{c1, c2, c3},
		},
		{
			"bundle overlapping a course",
			[]CartItem{
				{ID: primitive.NewObjectID(), ItemType: ItemTypeBundle, Courses: []primitive.ObjectID{c1, c2}},
				{ID: c2, ItemType: ItemTypeCourse},
				{ID: c1, ItemType: ItemTypeCourse},
			},
			[]primitive.ObjectID{c1, c2},
		},
		{"zero ids dropped", []CartItem{{ItemType: ItemTypeCourse}}, []primitive.ObjectID{}},
		{"empty bundle", []CartItem{{ID: primitive.NewObjectID(), ItemType: ItemTypeBundle}}, []primitive.ObjectID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandItems(tt.items)
			if len(got) != len(tt.want) {
				t.Fatalf("ExpandItems = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ExpandItems[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReconcile_CheckoutWithBundle(t *testing.T) {
	u := newUser()
	c1, c2, c3 := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	u.Cart = []primitive.ObjectID{c1, c2}
	l := Open(u)

	ids := ExpandItems([]CartItem{
		{ID: c1, ItemType: ItemTypeCourse},
		{ID: primitive.NewObjectID(), ItemType: ItemTypeBundle, Courses: []primitive.ObjectID{c2, c3}},
	})
	added, err := l.Reconcile(ids, t0)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(added) != 3 || len(u.Purchases) != 3 {
		t.Fatalf("added %d, purchases %d; want 3 and 3", len(added), len(u.Purchases))
	}
	for _, p := range u.Purchases {
		if len(p.CompletedLessons) != 0 {
			t.Errorf("new entry has lessons %v", p.CompletedLessons)
		}
		if !p.EnrolledAt.Equal(t0) || !p.LastViewed.Equal(t0) {
			t.Errorf("timestamps = %v/%v, want %v", p.EnrolledAt, p.LastViewed, t0)
		}
	}
	if len(u.Cart) != 0 {
		t.Errorf("cart = %v, want empty", u.Cart)
	}
	if u.Streak != 1 || !u.LastActivity.Equal(t0) {
		t.Errorf("streak/lastActivity = %d/%v, want 1/%v", u.Streak, u.LastActivity, t0)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	u := newUser()
	c1, c2 := primitive.NewObjectID(), primitive.NewObjectID()
	l := Open(u)

	if _, err := l.Reconcile([]primitive.ObjectID{c1, c2}, t0); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	streak, last := u.Streak, u.LastActivity

	u.Cart = []primitive.ObjectID{c1}
	later := t0.AddDate(0, 0, 1)
	added, err := l.Reconcile([]primitive.ObjectID{c1, c2, c1}, later)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if len(added) != 0 {
		t.Errorf("second Reconcile added %v, want nothing", added)
	}
	if len(u.Purchases) != 2 {
		t.Errorf("purchases = %d, want 2", len(u.Purchases))
	}
	if u.Streak != streak || !u.LastActivity.Equal(last) {
		t.Error("streak must not change when nothing was added")
	}
	if len(u.Cart) != 0 {
		t.Error("cart must be cleared even when nothing was added")
	}
}

func TestReconcile_Empty(t *testing.T) {
	u := newUser()
	u.Cart = []primitive.ObjectID{primitive.NewObjectID()}
	l := Open(u)

	if _, err := l.Reconcile(nil, t0); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if len(u.Cart) != 1 || u.Streak != 0 {
		t.Error("empty checkout must not mutate the user")
	}
}

func TestOpen_IndexesExistingPurchases(t *testing.T) {
	u := newUser()
	c1 := primitive.NewObjectID()
	u.Purchases = []models.PurchaseEntry{{CourseID: c1, EnrolledAt: t0.AddDate(0, -1, 0)}}
	l := Open(u)

	if !l.Owns(c1) {
		t.Fatal("expected Owns(c1)")
	}
	if _, err := l.Reconcile([]primitive.ObjectID{c1}, t0); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if countCourse(u, c1) != 1 {
		t.Errorf("course appears %d times, want 1", countCourse(u, c1))
	}
	if !u.Purchases[0].EnrolledAt.Equal(t0.AddDate(0, -1, 0)) {
		t.Error("enrolledAt must be immutable")
	}
}

func TestPurchaseOne(t *testing.T) {
	u := newUser()
	c1, other := primitive.NewObjectID(), primitive.NewObjectID()
	u.Cart = []primitive.ObjectID{other, c1}
	l := Open(u)

	if err := l.PurchaseOne(c1, t0); err != nil {
		t.Fatalf("PurchaseOne: %v", err)
	}
	if !l.Owns(c1) || len(u.Purchases) != 1 {
		t.Fatal("expected one purchase of c1")
	}
	if len(u.Cart) != 1 || u.Cart[0] != other {
		t.Errorf("cart = %v, want only the other course", u.Cart)
	}
	if u.Streak != 1 {
		t.Errorf("streak = %d, want 1", u.Streak)
	}

	if err := l.PurchaseOne(c1, t0.Add(time.Hour)); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("second PurchaseOne: expected ErrAlreadyOwned, got %v", err)
	}
	if countCourse(u, c1) != 1 {
		t.Errorf("course appears %d times, want 1", countCourse(u, c1))
	}
	if !u.LastActivity.Equal(t0) {
		t.Error("rejected purchase must not count as activity")
	}
}

func TestMarkLessonComplete(t *testing.T) {
	u := newUser()
	c1 := primitive.NewObjectID()
	l := Open(u)
	if err := l.PurchaseOne(c1, t0); err != nil {
		t.Fatalf("PurchaseOne: %v", err)
	}

	first := t0.AddDate(0, 0, 1)
	added, err := l.MarkLessonComplete(c1, "lesson-1", first)
	if err != nil || !added {
		t.Fatalf("first MarkLessonComplete = %v, %v; want true, nil", added, err)
	}
	if u.Streak != 2 {
		t.Errorf("streak after next-day lesson = %d, want 2", u.Streak)
	}

	second := first.Add(time.Hour)
	added, err = l.MarkLessonComplete(c1, "lesson-1", second)
	if err != nil || added {
		t.Fatalf("second MarkLessonComplete = %v, %v; want false, nil", added, err)
	}

	e, _ := l.Entry(c1)
	if len(e.CompletedLessons) != 1 {
		t.Errorf("completedLessons = %v, want one occurrence", e.CompletedLessons)
	}
	if !e.LastViewed.Equal(first) {
		t.Errorf("lastViewed = %v, want first call's %v", e.LastViewed, first)
	}
	if !u.LastActivity.Equal(second) {
		t.Error("repeat completion still counts as activity")
	}
	if !e.EnrolledAt.Equal(t0) {
		t.Error("enrolledAt must be immutable")
	}
}

func TestMarkLessonComplete_NotEnrolled(t *testing.T) {
	u := newUser()
	u.Streak = 4
	u.LastActivity = t0.AddDate(0, 0, -1)
	l := Open(u)

	_, err := l.MarkLessonComplete(primitive.NewObjectID(), "lesson-1", t0)
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
	if u.Streak != 4 || !u.LastActivity.Equal(t0.AddDate(0, 0, -1)) {
		t.Error("unowned progress must not touch the streak")
	}
	if len(u.Purchases) != 0 {
		t.Error("unowned progress must not create entries")
	}
}

func TestSetCart(t *testing.T) {
	u := newUser()
	c1, c2 := primitive.NewObjectID(), primitive.NewObjectID()
	l := Open(u)

	l.SetCart([]primitive.ObjectID{c2, c1, c2, primitive.NilObjectID})
	if len(u.Cart) != 2 || u.Cart[0] != c2 || u.Cart[1] != c1 {
		t.Errorf("cart = %v, want [%v %v]", u.Cart, c2, c1)
	}

	l.SetCart(nil)
	if u.Cart == nil || len(u.Cart) != 0 {
		t.Errorf("cart = %v, want empty non-nil", u.Cart)
	}
}
