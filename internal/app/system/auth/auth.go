// internal/app/system/auth/auth.go
//
// Package auth resolves the caller's session. A session arrives either as a
// signed cookie (browser clients) or as a bearer token (API clients); both
// carry the same identity claims and resolve to a SessionUser that handlers
// receive explicitly through CurrentUser.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

// SessionUser is the resolved identity of a signed-in caller.
type SessionUser struct {
	ID        string `json:"id"` // user _id hex
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser returns a copy of r carrying u as the current user.
// Used by handler tests to bypass cookie/token decoding.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// writeUnauthenticated answers API callers with a JSON 401.
func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", `Bearer realm="todohub"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "unauthenticated",
		"code":  "unauthenticated",
	})
}
