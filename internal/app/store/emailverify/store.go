// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/bayit/internal/app/system/normalize"
	"github.com/dalemusser/bayit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the length of the verification code (6 digits).
	CodeLength = 6
	// DefaultExpiry is how long a verification code is valid.
	DefaultExpiry = 15 * time.Minute
	// BcryptCost for hashing codes.
	BcryptCost = 10
	// MaxVerifyAttempts is the maximum number of code verification attempts per issued code.
	MaxVerifyAttempts = 5
)

var (
	// ErrNotFound is returned when no code is pending for the user or it has expired.
	ErrNotFound = errors.New("verification not found or expired")
	// ErrInvalidCode is returned when the code doesn't match.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrTooManyAttempts is returned when too many verification attempts have been made.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrAlreadyVerified is returned when the account needs no verification.
	ErrAlreadyVerified = errors.New("email already verified")
)

// Store manages the pending verification code held on each user record.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a new Store with the specified expiry duration.
// If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection("users"),
		expiry: expiry,
	}
}

// Expiry returns the expiry duration for verification codes.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Issue generates a fresh code for the user, stores its bcrypt hash with a
// new expiry, and resets the attempt counter. The plain code is returned for
// mailing and never stored.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID) (string, error) {
	code := generateCode()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "is_verified": false},
		bson.M{"$set": bson.M{
			"verification_code_hash":  string(hash),
			"verification_expires_at": time.Now().UTC().Add(s.expiry),
			"verification_attempts":   0,
			"updated_at":              time.Now().UTC(),
		}},
	)
	if err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	if res.MatchedCount == 0 {
		return "", ErrAlreadyVerified
	}
	return code, nil
}

// Verify checks code against the pending code for email. On success the user
// is marked verified, the pending code is cleared, and the updated record is
// returned. Every attempt counts against MaxVerifyAttempts.
func (s *Store) Verify(ctx context.Context, email, code string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if u.VerificationCodeHash == nil || u.VerificationExpiresAt == nil ||
		!time.Now().Before(*u.VerificationExpiresAt) {
		return nil, ErrNotFound
	}
	if u.VerificationAttempts >= MaxVerifyAttempts {
		return nil, ErrTooManyAttempts
	}

	// Count the attempt before comparing so parallel guesses cannot exceed the limit.
	_, _ = s.c.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$inc": bson.M{"verification_attempts": 1}})

	if err := bcrypt.CompareHashAndPassword([]byte(*u.VerificationCodeHash), []byte(code)); err != nil {
		return nil, ErrInvalidCode
	}

	var out models.User
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": u.ID},
		bson.M{
			"$set": bson.M{"is_verified": true, "updated_at": time.Now().UTC()},
			"$unset": bson.M{
				"verification_code_hash":  "",
				"verification_expires_at": "",
				"verification_attempts":   "",
			},
			"$inc": bson.M{"version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	return &out, nil
}

// generateCode generates a random 6-digit numeric code.
// Panics if the system's cryptographic random number generator fails.
func generateCode() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand.Read failed: " + err.Error())
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	// 100000 to 999999
	return fmt.Sprintf("%06d", n%900000+100000)
}
