// Package jwt inspects the library API's access tokens and issues tokens of the
// same shape for local servers and tests.
//
// Inspect never verifies a signature: the client holds no key, so the token
// remains opaque for authorization and claims are advisory (expiry display,
// dropping stale sessions at startup). Signer is the server side of the same
// format, signing with HS256.
package jwt
