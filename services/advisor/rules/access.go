// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"errors"

	"github.com/textmate-ai/textmate-backend/pkg/extensions"
	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

// ErrUserRequired reports the invariant violation of reaching the
// access filter with no authenticated user while authentication is
// enabled. This must fail loudly; a silent allow would leak restricted
// documents and a silent deny would mask the misconfiguration.
var ErrUserRequired = errors.New("user required when authentication is enabled")

// HasAccess decides whether the given user may see and use the rules of
// the given document.
//
// The predicate is pure:
//   - a document tagged "all" is visible to everyone,
//   - with auth disabled a missing user sees everything (local/dev
//     escape hatch),
//   - otherwise the user's role claims must intersect the document's
//     access tags.
//
// Callers that later pass document identifiers into the batcher MUST
// pre-filter through this predicate; the batcher itself performs no
// access checks.
func HasAccess(user *extensions.AuthInfo, doc datatypes.DocumentDescription, authDisabled bool) (bool, error) {
	if doc.IsPublic() {
		return true, nil
	}

	if user == nil {
		if authDisabled {
			return true, nil
		}
		return false, ErrUserRequired
	}

	for _, role := range user.Roles {
		for _, tag := range doc.Access {
			if role == tag {
				return true, nil
			}
		}
	}
	return false, nil
}
