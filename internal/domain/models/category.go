// internal/domain/models/category.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category groups courses in the catalog.
type Category struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"`
	Slug      string             `bson:"slug" json:"slug"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Bundle sells several courses as one cart item.
type Bundle struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title      string               `bson:"title" json:"title"`
	CourseIDs  []primitive.ObjectID `bson:"course_ids" json:"course_ids"`
	PriceCents int64                `bson:"price_cents" json:"price_cents"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
}
