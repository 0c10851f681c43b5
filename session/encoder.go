package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptUser is returned when a persisted user record cannot be decoded.
var ErrCorruptUser = errors.New("persisted user record corrupt")

// EncodeUser serializes u for the [KeyUser] entry.
func EncodeUser(u *User) (string, error) {
	if u == nil {
		return "", errors.New("nil user")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeUser parses a [KeyUser] entry. The literal "null" decodes to a nil user,
// matching what a browser front end writes after serializing an absent profile.
// Anything that is not a JSON object fails with [ErrCorruptUser].
func DecodeUser(raw string) (*User, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrCorruptUser)
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not an object", ErrCorruptUser)
	}

	u := &User{}
	if err := json.Unmarshal(trimmed, u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptUser, err)
	}
	return u, nil
}
