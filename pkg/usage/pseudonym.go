// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package usage records pseudonymized usage events in an embedded
// BadgerDB store. Events never contain user text or raw user
// identifiers; the subject id is replaced by a keyed one-way hash
// before it reaches the store.
package usage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PseudonymizeUserID derives a consistent, one-way pseudonym for a
// user's stable subject identifier using HMAC-SHA256 with the given
// secret. The same (userID, secret) pair always yields the same
// pseudonym, so usage of one user can be correlated without ever
// storing who the user is.
func PseudonymizeUserID(userID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}
