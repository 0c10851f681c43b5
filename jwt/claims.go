package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the token_type claim carried by access tokens.
const TokenTypeAccess = "access"

var (
	// ErrNotJWT is returned by Inspect when the token is not a decodable JWT.
	ErrNotJWT = errors.New("token is not a jwt")
	// ErrInvalidUserID is returned when the user_id claim is neither a string nor a number.
	ErrInvalidUserID = errors.New("invalid user_id claim")
)

// UserID is the user_id claim. The API emits integer ids; strings are
// accepted as-is.
type UserID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrInvalidUserID
	}
	*u = UserID(n.String())
	return nil
}

// MarshalJSON emits integer-looking ids as numbers, matching the API.
func (u UserID) MarshalJSON() ([]byte, error) {
	s := string(u)
	if s != "" && strings.Trim(s, "0123456789") == "" {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

// Claims is the payload of an access token.
type Claims struct {
	UserID    UserID `json:"user_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// JTI returns the token id.
func (c *Claims) JTI() string {
	return c.ID
}

// ExpiresAtTime returns the exp claim, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether exp is present and not after now.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !c.ExpiresAt.Time.After(now)
}

// Inspect decodes the claims of token without verifying its signature.
func Inspect(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}
	return claims, nil
}
