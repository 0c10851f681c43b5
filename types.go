package goShelf

import (
	"github.com/MrEthical07/goShelf/session"
)

// User is the signed-in user's profile as returned by the API.
type User = session.User

// State is a snapshot of the session.
type State = session.State

// LoginResult is what a successful Login yields.
type LoginResult struct {
	User *User
	// Refresh is the refresh token issued alongside the access token, if any.
	// It is never persisted.
	Refresh string
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
	User    *User  `json:"user"`
}
