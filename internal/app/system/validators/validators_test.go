package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/bayit/internal/app/system/validators"
	"github.com/dalemusser/bayit/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range []string{"users", "courses", "categories", "bundles", "oauth_states"} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	now := time.Now().UTC()
	courseID := primitive.NewObjectID()

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{
			name: "valid user",
			coll: "users",
			doc: bson.M{
				"email": "a@example.com", "full_name": "A", "streak": 0, "version": int64(0),
				"purchases": bson.A{}, "cart": bson.A{},
			},
		},
		{
			name: "user with purchase",
			coll: "users",
			doc: bson.M{
				"email": "b@example.com", "full_name": "B", "streak": 2, "version": int64(3),
				"purchases": bson.A{bson.M{
					"course_id": courseID, "completed_lessons": bson.A{"l1"},
					"enrolled_at": now, "last_viewed": now,
				}},
			},
		},
		{name: "user missing email", coll: "users", doc: bson.M{"full_name": "C", "streak": 0, "version": 0}, wantErr: true},
		{name: "user blank email", coll: "users", doc: bson.M{"email": "  ", "full_name": "C", "streak": 0, "version": 0}, wantErr: true},
		{name: "negative streak", coll: "users", doc: bson.M{"email": "d@example.com", "full_name": "D", "streak": -1, "version": 0}, wantErr: true},
		{
			name: "purchase without course id",
			coll: "users",
			doc: bson.M{
				"email": "e@example.com", "full_name": "E", "streak": 0, "version": 0,
				"purchases": bson.A{bson.M{"enrolled_at": now}},
			},
			wantErr: true,
		},
		{
			name: "valid course",
			coll: "courses",
			doc: bson.M{
				"title": "Go", "status": "published", "price_cents": int64(1999),
				"lessons": bson.A{bson.M{"lesson_id": "l1", "title": "Intro"}},
			},
		},
		{name: "course bad status", coll: "courses", doc: bson.M{"title": "Go", "status": "archived", "price_cents": 0}, wantErr: true},
		{name: "course negative price", coll: "courses", doc: bson.M{"title": "Go", "status": "draft", "price_cents": -5}, wantErr: true},
		{
			name:    "lesson without id",
			coll:    "courses",
			doc:     bson.M{"title": "Go", "status": "draft", "price_cents": 0, "lessons": bson.A{bson.M{"title": "x"}}},
			wantErr: true,
		},
		{name: "valid category", coll: "categories", doc: bson.M{"name": "Design", "slug": "design"}},
		{name: "category without slug", coll: "categories", doc: bson.M{"name": "Design"}, wantErr: true},
		{name: "valid bundle", coll: "bundles", doc: bson.M{"title": "Pack", "course_ids": bson.A{courseID}, "price_cents": 500}},
		{name: "bundle bad course id", coll: "bundles", doc: bson.M{"title": "Pack", "course_ids": bson.A{"nope"}}, wantErr: true},
		{name: "oauth state has no validator", coll: "oauth_states", doc: bson.M{"anything": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
