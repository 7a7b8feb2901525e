package auth

import "errors"

// Token validation errors. All of them surface to clients as 401.
var (
	ErrTokenExpired    = errors.New("token has expired")
	ErrTokenMalformed  = errors.New("token is malformed")
	ErrTokenInvalidSig = errors.New("token signature is invalid")
	ErrTokenClaims     = errors.New("token claims are incomplete")
)
