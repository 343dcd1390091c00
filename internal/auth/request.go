package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingCredentials indicates that the request carries no Authorization header.
	ErrMissingCredentials = errors.New("auth: credentials were not provided")
	// ErrMalformedCredentials indicates an Authorization header with an unknown scheme or no token.
	ErrMalformedCredentials = errors.New("auth: authorization header missing or invalid")
)

var acceptedSchemes = []string{"Bearer", "Token"}

// TokenFromRequest extracts the raw token from an "Authorization: Bearer <token>" header.
// The "Token <token>" form is accepted as well.
func TokenFromRequest(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrMissingCredentials
	}
	return TokenFromHeader(r.Header.Get("Authorization"))
}

// TokenFromHeader parses an Authorization header value.
func TokenFromHeader(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredentials
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found {
		return "", ErrMalformedCredentials
	}
	for _, accepted := range acceptedSchemes {
		if strings.EqualFold(scheme, accepted) {
			token = strings.TrimSpace(token)
			if token == "" {
				return "", ErrMalformedCredentials
			}
			return token, nil
		}
	}
	return "", ErrMalformedCredentials
}
