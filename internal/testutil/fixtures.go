package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/bayit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures inserts test documents directly, bypassing store validation.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an unverified user with an empty library.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      email,
		Purchases:  []models.PurchaseEntry{},
		Cart:       []primitive.ObjectID{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateCategory inserts a category whose slug is the folded name.
func (f *Fixtures) CreateCategory(ctx context.Context, name string) models.Category {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Category{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Slug:      text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("categories").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test category: %v", err)
	}
	return c
}

// CreateCourse inserts a published course with one lesson per id.
func (f *Fixtures) CreateCourse(ctx context.Context, title string, categoryID primitive.ObjectID, lessonIDs ...string) models.Course {
	f.t.Helper()
	return f.insertCourse(ctx, title, categoryID, models.CourseStatusPublished, lessonIDs)
}

// CreateDraftCourse inserts an unpublished course.
func (f *Fixtures) CreateDraftCourse(ctx context.Context, title string, categoryID primitive.ObjectID) models.Course {
	f.t.Helper()
	return f.insertCourse(ctx, title, categoryID, models.CourseStatusDraft, nil)
}

func (f *Fixtures) insertCourse(ctx context.Context, title string, categoryID primitive.ObjectID, status string, lessonIDs []string) models.Course {
	f.t.Helper()

	now := time.Now().UTC()
	lessons := make([]models.Lesson, 0, len(lessonIDs))
	for _, id := range lessonIDs {
		lessons = append(lessons, models.Lesson{LessonID: id, Title: "Lesson " + id, DurationSeconds: 300})
	}
	c := models.Course{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		Description: "About " + title,
		CategoryID:  categoryID,
		Instructor:  "Test Instructor",
		PriceCents:  1999,
		Lessons:     lessons,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("courses").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test course: %v", err)
	}
	return c
}

// CreateBundle inserts a bundle over the given courses.
func (f *Fixtures) CreateBundle(ctx context.Context, title string, courseIDs ...primitive.ObjectID) models.Bundle {
	f.t.Helper()

	b := models.Bundle{
		ID:         primitive.NewObjectID(),
		Title:      title,
		CourseIDs:  courseIDs,
		PriceCents: 4999,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := f.db.Collection("bundles").InsertOne(ctx, b); err != nil {
		f.t.Fatalf("failed to create test bundle: %v", err)
	}
	return b
}
