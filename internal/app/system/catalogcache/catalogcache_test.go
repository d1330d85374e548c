package catalogcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/bayit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeCourses struct {
	byID  map[primitive.ObjectID]models.Course
	calls int
	asked []primitive.ObjectID
}

func (f *fakeCourses) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	f.calls++
	f.asked = append(f.asked[:0], ids...)
	var out []models.Course
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeCategories struct {
	list  []models.Category
	calls int
}

func (f *fakeCategories) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	f.calls++
	var out []models.Category
	for _, c := range f.list {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeCategories) List(context.Context) ([]models.Category, error) {
	f.calls++
	return f.list, nil
}

type fakeBundles struct {
	b     models.Bundle
	calls int
}

func (f *fakeBundles) GetByID(_ context.Context, id primitive.ObjectID) (models.Bundle, error) {
	f.calls++
	if id != f.b.ID {
		return models.Bundle{}, mongo.ErrNoDocuments
	}
	return f.b, nil
}

func setup(t *testing.T, withRedis bool) (*Catalog, *fakeCourses, *fakeCategories, *fakeBundles, *miniredis.Miniredis) {
	t.Helper()
	c1 := models.Course{ID: primitive.NewObjectID(), Title: "One", Status: models.CourseStatusPublished}
	c2 := models.Course{ID: primitive.NewObjectID(), Title: "Two", Status: models.CourseStatusPublished}
	courses := &fakeCourses{byID: map[primitive.ObjectID]models.Course{c1.ID: c1, c2.ID: c2}}
	cats := &fakeCategories{list: []models.Category{{ID: primitive.NewObjectID(), Name: "Art", Slug: "art"}}}
	bundles := &fakeBundles{b: models.Bundle{ID: primitive.NewObjectID(), Title: "Pack", CourseIDs: []primitive.ObjectID{c1.ID, c2.ID}}}

	cfg := Config{Courses: courses, Categories: cats, Bundles: bundles, TTL: time.Minute}
	var mr *miniredis.Miniredis
	if withRedis {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			t.Fatalf("start miniredis: %v", err)
		}
		t.Cleanup(mr.Close)
		rdb, err := Connect(context.Background(), mr.Addr(), "", 0)
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
		t.Cleanup(func() { _ = rdb.Close() })
		cfg.Redis = rdb
	}
	return New(cfg), courses, cats, bundles, mr
}

func firstTwo(f *fakeCourses) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for id := range f.byID {
		ids = append(ids, id)
	}
	return ids
}

func TestCourses_ReadThrough(t *testing.T) {
	cat, courses, _, _, mr := setup(t, true)
	ctx := context.Background()
	ids := firstTwo(courses)
	missing := primitive.NewObjectID()

	got, err := cat.Courses(ctx, append(ids, missing))
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if courses.calls != 1 {
		t.Fatalf("source calls = %d, want 1", courses.calls)
	}
	if !mr.Exists(courseKey(ids[0])) {
		t.Error("expected course to be cached")
	}
	if ttl := mr.TTL(courseKey(ids[0])); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	// Second read: cached ids are served from Redis, only the missing id is reloaded.
	got, err = cat.Courses(ctx, append(ids, missing))
	if err != nil {
		t.Fatalf("Courses (cached): %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if courses.calls != 2 || len(courses.asked) != 1 || courses.asked[0] != missing {
		t.Errorf("second load asked for %v, want only %v", courses.asked, missing)
	}
	if got[ids[0]].Title != courses.byID[ids[0]].Title {
		t.Errorf("cached title = %q", got[ids[0]].Title)
	}

	mr.FastForward(time.Minute + time.Second)
	if mr.Exists(courseKey(ids[0])) {
		t.Error("expected course key to expire after the TTL")
	}
}

func TestCourses_WithoutRedis(t *testing.T) {
	cat, courses, _, _, _ := setup(t, false)
	ctx := context.Background()
	ids := firstTwo(courses)

	for i := 0; i < 2; i++ {
		if _, err := cat.Courses(ctx, ids); err != nil {
			t.Fatalf("Courses: %v", err)
		}
	}
	if courses.calls != 2 {
		t.Errorf("source calls = %d, want 2 (no cache)", courses.calls)
	}

	got, err := cat.Courses(ctx, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("Courses(nil) = %v, %v", got, err)
	}
}

func TestCourses_RedisDownFallsBack(t *testing.T) {
	cat, courses, _, _, mr := setup(t, true)
	mr.Close()

	got, err := cat.Courses(context.Background(), firstTwo(courses))
	if err != nil {
		t.Fatalf("Courses with redis down: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestListCategories_Cached(t *testing.T) {
	cat, _, cats, _, mr := setup(t, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		list, err := cat.ListCategories(ctx)
		if err != nil {
			t.Fatalf("ListCategories: %v", err)
		}
		if len(list) != 1 || list[0].Name != "Art" {
			t.Fatalf("list = %+v", list)
		}
	}
	if cats.calls != 1 {
		t.Errorf("source calls = %d, want 1", cats.calls)
	}

	mr.FastForward(time.Minute + time.Second)
	if _, err := cat.ListCategories(ctx); err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if cats.calls != 2 {
		t.Errorf("source calls after expiry = %d, want 2", cats.calls)
	}
}

func TestBundle(t *testing.T) {
	cat, _, _, bundles, _ := setup(t, true)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		b, err := cat.Bundle(ctx, bundles.b.ID)
		if err != nil {
			t.Fatalf("Bundle: %v", err)
		}
		if len(b.CourseIDs) != 2 {
			t.Errorf("CourseIDs = %v", b.CourseIDs)
		}
	}
	if bundles.calls != 1 {
		t.Errorf("source calls = %d, want 1", bundles.calls)
	}

	if _, err := cat.Bundle(ctx, primitive.NewObjectID()); err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Connect(ctx, "127.0.0.1:1", "", 0); err == nil {
		t.Error("expected error connecting to a closed port")
	}
}
