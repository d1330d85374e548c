// internal/domain/models/course.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course status values.
const (
	CourseStatusPublished = "published"
	CourseStatusDraft     = "draft"
)

// Course is a catalog entry. The catalog is read-mostly from this service's
// point of view; courses are authored elsewhere.
type Course struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	TitleCI      string             `bson:"title_ci" json:"-"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	CategoryID   primitive.ObjectID `bson:"category_id" json:"category_id"`
	Instructor   string             `bson:"instructor,omitempty" json:"instructor,omitempty"`
	PriceCents   int64              `bson:"price_cents" json:"price_cents"`
	ThumbnailURL string             `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"`
	Lessons      []Lesson           `bson:"lessons" json:"lessons"`
	Status       string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Lesson is one unit of a course. LessonID is opaque to this service.
type Lesson struct {
	LessonID        string `bson:"lesson_id" json:"lesson_id"`
	Title           string `bson:"title" json:"title"`
	VideoURL        string `bson:"video_url,omitempty" json:"video_url,omitempty"`
	DurationSeconds int    `bson:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`
}
