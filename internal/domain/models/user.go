// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a marketplace customer.
//
// NOTE:
//   - Purchases are embedded and never persisted on their own.
//   - Version is bumped on every library write; stores use it for
//     optimistic concurrency.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`    // lowercase, trimmed

	PasswordHash *string `bson:"password_hash,omitempty" json:"-"` // nil for social-only accounts
	GoogleID     *string `bson:"google_id,omitempty" json:"-"`

	IsVerified            bool       `bson:"is_verified" json:"is_verified"`
	VerificationCodeHash  *string    `bson:"verification_code_hash,omitempty" json:"-"`
	VerificationExpiresAt *time.Time `bson:"verification_expires_at,omitempty" json:"-"`
	VerificationAttempts  int        `bson:"verification_attempts,omitempty" json:"-"`

	LastActivity time.Time `bson:"last_activity" json:"last_activity"` // zero = never active
	Streak       int       `bson:"streak" json:"streak"`

	Purchases []PurchaseEntry      `bson:"purchases" json:"purchases"`
	Cart      []primitive.ObjectID `bson:"cart" json:"cart"`

	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PurchaseEntry records ownership of one course and the learner's progress in it.
type PurchaseEntry struct {
	CourseID         primitive.ObjectID `bson:"course_id" json:"course_id"`
	CompletedLessons []string           `bson:"completed_lessons" json:"completed_lessons"`
	EnrolledAt       time.Time          `bson:"enrolled_at" json:"enrolled_at"`
	LastViewed       time.Time          `bson:"last_viewed" json:"last_viewed"`
}

// HasPassword reports whether the account can sign in with email + password.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
