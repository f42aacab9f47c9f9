// Copyright (C) 2025 TextMate AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmate-ai/textmate-backend/pkg/extensions"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// tokenAuthProvider accepts exactly one token; anything else is
// unauthorized.
type tokenAuthProvider struct {
	token string
	info  *extensions.AuthInfo
}

func (p *tokenAuthProvider) Validate(_ context.Context, token string) (*extensions.AuthInfo, error) {
	if token != p.token {
		return nil, fmt.Errorf("token mismatch: %w", extensions.ErrUnauthorized)
	}
	return p.info, nil
}

func setupAuthRouter(t *testing.T, provider extensions.AuthProvider) *gin.Engine {
	t.Helper()
	router := gin.New()
	router.GET("/whoami", AuthMiddleware(provider), func(c *gin.Context) {
		user := GetAuthInfo(c)
		require.NotNil(t, user)
		c.JSON(http.StatusOK, gin.H{"user_id": user.UserID, "roles": user.Roles})
	})
	return router
}

func doGet(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	provider := &tokenAuthProvider{
		token: "secret-token",
		info:  &extensions.AuthInfo{UserID: "u1", Roles: []string{"editorial"}},
	}
	router := setupAuthRouter(t, provider)

	w := doGet(router, "Bearer secret-token")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
}

func TestAuthMiddleware_BearerSchemeIsCaseInsensitive(t *testing.T) {
	provider := &tokenAuthProvider{token: "secret-token", info: &extensions.AuthInfo{UserID: "u1"}}
	router := setupAuthRouter(t, provider)

	for _, header := range []string{"bearer secret-token", "BEARER secret-token"} {
		w := doGet(router, header)
		assert.Equal(t, http.StatusOK, w.Code, "header %q", header)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	provider := &tokenAuthProvider{token: "secret-token", info: &extensions.AuthInfo{UserID: "u1"}}
	router := setupAuthRouter(t, provider)

	tests := []struct {
		name   string
		header string
	}{
		{name: "wrong token", header: "Bearer wrong"},
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic c2VjcmV0"},
		{name: "no scheme", header: "secret-token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doGet(router, tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_NopProviderAcceptsAnything(t *testing.T) {
	router := setupAuthRouter(t, &extensions.NopAuthProvider{})

	for _, header := range []string{"", "Bearer anything"} {
		w := doGet(router, header)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":"local-user"`)
	}
}

func TestGetAuthInfo_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetAuthInfo(c))
}
