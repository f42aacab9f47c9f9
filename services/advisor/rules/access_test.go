// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmate-ai/textmate-backend/pkg/extensions"
	"github.com/textmate-ai/textmate-backend/services/advisor/datatypes"
)

func TestHasAccess(t *testing.T) {
	publicDoc := datatypes.DocumentDescription{File: "style.pdf", Access: []string{"all"}}
	legalDoc := datatypes.DocumentDescription{File: "legal.pdf", Access: []string{"legal", "compliance"}}
	untaggedDoc := datatypes.DocumentDescription{File: "internal.pdf"}

	legalUser := &extensions.AuthInfo{UserID: "u1", Roles: []string{"legal"}}
	editorUser := &extensions.AuthInfo{UserID: "u2", Roles: []string{"editorial"}}
	noRolesUser := &extensions.AuthInfo{UserID: "u3", Roles: []string{}}

	tests := []struct {
		name         string
		user         *extensions.AuthInfo
		doc          datatypes.DocumentDescription
		authDisabled bool
		want         bool
		wantErr      bool
	}{
		{name: "public doc, no user, auth enabled", user: nil, doc: publicDoc, want: true},
		{name: "public doc, user without roles", user: noRolesUser, doc: publicDoc, want: true},
		{name: "restricted doc, matching role", user: legalUser, doc: legalDoc, want: true},
		{name: "restricted doc, non-matching role", user: editorUser, doc: legalDoc, want: false},
		{name: "restricted doc, no roles", user: noRolesUser, doc: legalDoc, want: false},
		{name: "restricted doc, no user, auth disabled", user: nil, doc: legalDoc, authDisabled: true, want: true},
		{name: "restricted doc, no user, auth enabled", user: nil, doc: legalDoc, wantErr: true},
		{name: "untagged doc, no user, auth enabled", user: nil, doc: untaggedDoc, wantErr: true},
		{name: "untagged doc, any user", user: legalUser, doc: untaggedDoc, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := HasAccess(tc.user, tc.doc, tc.authDisabled)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrUserRequired)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHasAccess_PublicTagAmongOthers(t *testing.T) {
	doc := datatypes.DocumentDescription{File: "mixed.pdf", Access: []string{"legal", "all"}}

	ok, err := HasAccess(nil, doc, false)
	require.NoError(t, err)
	assert.True(t, ok, "a doc carrying the public tag is visible regardless of other tags")
}
