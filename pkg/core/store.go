package core

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Store is the contract for client side persisted state.
// A "local" store survives restarts (tokens, profile cache); a "session" store
// lives for the duration of one quiz attempt or one CLI invocation chain.
type Store interface {
	// Get returns the value and true if the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set creates or replaces a value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key of the store.
	Clear(ctx context.Context) error
}

// Local storage keys.
const (
	KeyToken            = "token"
	KeyUserID           = "userId"
	KeyIsPaid           = "is_paid"
	KeyProfileCache     = "user_profile_cache"
	KeyMerchantTradeNo  = "merchant_trade_no"
	KeyFamiliarityCache = "familiarity_cache"
)

// Session storage keys.
const (
	KeyQuizData             = "quizData"
	KeyUserAnswers          = "userAnswers"
	KeyFamiliarity          = "familiarity"
	KeyQuizProgress         = "quizProgress"
	KeyGeneratedTopic       = "generatedTopic"
	KeyGeneratedTopicSource = "generatedTopicSource"
	KeyGeneratedTopicNoteID = "generatedTopicNoteId"
)

// GetJSON decodes the value stored under key into v.
// It reports false when the key does not exist.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// CurrentSession reads the authenticated session from a local store.
func CurrentSession(ctx context.Context, s Store) (Session, error) {
	token, ok, err := s.Get(ctx, KeyToken)
	if err != nil {
		return Session{}, err
	}
	if !ok || token == "" {
		return Session{}, ErrUnauthenticated
	}
	userID, _, err := s.Get(ctx, KeyUserID)
	if err != nil {
		return Session{}, err
	}
	paid, _, err := s.Get(ctx, KeyIsPaid)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: userID, IsPaid: paid == "true"}, nil
}

// SaveSession writes an authenticated session to a local store.
func SaveSession(ctx context.Context, s Store, sess Session) error {
	if err := s.Set(ctx, KeyToken, sess.Token); err != nil {
		return err
	}
	if err := s.Set(ctx, KeyUserID, sess.UserID); err != nil {
		return err
	}
	paid := "false"
	if sess.IsPaid {
		paid = "true"
	}
	return s.Set(ctx, KeyIsPaid, paid)
}

// StoreEvent is emitted by stores that can observe external changes.
type StoreEvent struct {
	Key       string
	Timestamp int64 // Unix timestamp
}

func (e StoreEvent) String() string {
	return fmt.Sprintf("changed %s at %d", e.Key, e.Timestamp)
}

// Watchable is implemented by stores that can report external modifications.
type Watchable interface {
	Watch(ctx context.Context) (<-chan StoreEvent, error)
}
