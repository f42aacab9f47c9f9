// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the integration seams of the backend:
// authentication and usage auditing. The open source defaults are no-op
// implementations, so the service runs without any identity or audit
// infrastructure; deployments plug in real providers (Azure AD, Okta)
// through ServiceOptions.
package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when token validation fails.
// Provider implementations should wrap this error with context:
//
//	return nil, fmt.Errorf("token expired: %w", extensions.ErrUnauthorized)
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo is the identity of an authenticated user as seen by the
// advisor service: a stable subject identifier plus role claims. The
// role claims are matched against document access tags; the subject id
// is only ever recorded in pseudonymized form.
type AuthInfo struct {
	// UserID is the stable subject identifier (e.g. the oid/sub claim
	// of an Azure AD token). Never empty for a valid AuthInfo.
	UserID string

	// Email may be empty if the identity provider does not supply it.
	Email string

	// Roles are the user's role claims, matched against document
	// access tags. Typical tags: "editorial", "communications", "legal".
	Roles []string
}

// HasRole reports whether the user carries the given role claim.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates bearer tokens and returns user identity.
// Implementations must be safe for concurrent use.
//
// The default NopAuthProvider accepts any token (including none) and
// returns a local user, which is the "auth disabled" mode for local
// development. Production deployments validate JWTs against an identity
// provider and map the token's role claims into AuthInfo.Roles.
type AuthProvider interface {
	// Validate checks the token and returns the user's identity, or
	// ErrUnauthorized (possibly wrapped) if the token is invalid.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider is the default provider for local use. Any token,
// including the empty string, authenticates as "local-user" with no
// role claims; combined with the service's auth-disabled mode this
// makes every document visible.
type NopAuthProvider struct{}

// Validate always succeeds with the local user.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{},
	}, nil
}

var _ AuthProvider = (*NopAuthProvider)(nil)
