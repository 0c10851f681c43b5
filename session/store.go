package session

import (
	"context"
	"errors"
	"fmt"
)

const (
	// KeyToken holds the raw access token.
	KeyToken = "token"
	// KeyUser holds the JSON-encoded user profile.
	KeyUser = "user"
)

// ErrNotFound is returned by [Store.Get] when the key has no value.
var ErrNotFound = errors.New("session key not found")

// ErrStoreUnavailable wraps backend failures (I/O, Redis) so callers can tell them
// apart from a missing key.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is the durable string key/value port behind a client session. It plays the
// role browser local storage plays for a single-page front end.
//
// Implementations must be safe for concurrent use. Clear of absent keys is not an
// error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, keys ...string) error
}

// Load reads the persisted session from store.
//
// A missing token or user yields the zero value for that field. A user entry that
// fails to decode returns the token that was read together with an error wrapping
// [ErrCorruptUser]; the caller decides the fallback.
func Load(ctx context.Context, store Store) (State, error) {
	var st State

	token, err := store.Get(ctx, KeyToken)
	switch {
	case err == nil:
		st.Token = token
	case errors.Is(err, ErrNotFound):
	default:
		return State{}, err
	}

	raw, err := store.Get(ctx, KeyUser)
	switch {
	case err == nil:
		user, err := DecodeUser(raw)
		if err != nil {
			return st, err
		}
		st.User = user
	case errors.Is(err, ErrNotFound):
	default:
		return State{}, err
	}

	return st, nil
}

// Save writes both entries of st. A nil user clears the user entry; an empty token
// clears the token entry.
func Save(ctx context.Context, store Store, st State) error {
	if st.User == nil {
		if err := store.Clear(ctx, KeyUser); err != nil {
			return err
		}
	} else if err := SaveUser(ctx, store, st.User); err != nil {
		return err
	}

	if st.Token == "" {
		return store.Clear(ctx, KeyToken)
	}
	return store.Set(ctx, KeyToken, st.Token)
}

// SaveUser replaces only the user entry.
func SaveUser(ctx context.Context, store Store, user *User) error {
	raw, err := EncodeUser(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return store.Set(ctx, KeyUser, raw)
}

// Purge removes both entries. Purging an empty store succeeds.
func Purge(ctx context.Context, store Store) error {
	return store.Clear(ctx, KeyToken, KeyUser)
}
