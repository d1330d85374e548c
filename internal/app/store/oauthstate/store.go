// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultTTL is how long an issued state stays redeemable.
const DefaultTTL = 10 * time.Minute

// State represents an OAuth2 state token stored for CSRF protection.
type State struct {
	State     string    `bson:"state"`
	ReturnTo  string    `bson:"return_to,omitempty"` // frontend path to land on after sign-in
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages OAuth2 state tokens in MongoDB. Indexes (unique state, TTL
// on expires_at) are created by the indexes package.
type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

// New creates a new OAuth state Store. A ttl of 0 or less uses DefaultTTL.
func New(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: db.Collection("oauth_states"), ttl: ttl}
}

// Issue generates and stores a fresh state token.
func (s *Store) Issue(ctx context.Context, returnTo string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	now := time.Now().UTC()
	st := State{
		State:     state,
		ReturnTo:  returnTo,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, st); err != nil {
		return "", err
	}
	return state, nil
}

// Consume redeems a state token. A valid token is deleted (one-time use) and
// its return path is returned. An unknown or expired token yields ok=false
// with no error.
func (s *Store) Consume(ctx context.Context, state string) (returnTo string, ok bool, err error) {
	if state == "" {
		return "", false, nil
	}
	var st State
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&st)

	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.ReturnTo, true, nil
}
