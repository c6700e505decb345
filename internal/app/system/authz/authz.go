// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the session user (email lowercase-normalized), the user's
// Mongo ObjectID, and a found flag. If no user is present in context or the
// user ID is malformed, it returns a zero user, NilObjectID, false, so
// callers can trust that ok=true means a valid, authenticated user.
func UserCtx(r *http.Request) (user auth.SessionUser, userID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return auth.SessionUser{}, primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return auth.SessionUser{}, primitive.NilObjectID, false
	}
	out := *u
	out.Email = normalize.Email(u.Email)
	if out.Email == "" {
		return auth.SessionUser{}, primitive.NilObjectID, false
	}
	return out, userID, true
}
