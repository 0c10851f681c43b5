package goShelf

import (
	"errors"

	"github.com/MrEthical07/goShelf/api"
	"github.com/MrEthical07/goShelf/session"
)

var (
	// ErrInvalidCredentials is returned by Login when the API rejects the
	// username/password pair (400 or 401). The current session is untouched.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginFailed is returned by Login for transport failures and
	// unexpected statuses.
	ErrLoginFailed = errors.New("login failed")
	// ErrMalformedLoginResponse is returned when a 2xx login response lacks
	// an access token or user object.
	ErrMalformedLoginResponse = errors.New("malformed login response")
	// ErrRegisterFailed is returned by Register for any non-2xx response or
	// transport failure.
	ErrRegisterFailed = errors.New("registration failed")
	// ErrInvalidRegistration is returned when required registration fields are blank.
	ErrInvalidRegistration = errors.New("invalid registration input")
	// ErrInvalidUser is returned by UpdateUser for a nil user.
	ErrInvalidUser = errors.New("invalid user")
	// ErrNoToken is returned by TokenClaims when no session is active.
	ErrNoToken = errors.New("no active token")
	// ErrStoreUnavailable is the session package's storage failure, re-exported.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrUnauthorized matches API responses with status 401.
	ErrUnauthorized = api.ErrUnauthorized
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)
