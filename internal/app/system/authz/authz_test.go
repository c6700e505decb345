package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	u, id, ok := authz.UserCtx(req)
	if ok {
		t.Error("expected ok=false with no user")
	}
	if id != primitive.NilObjectID {
		t.Errorf("expected NilObjectID, got %v", id)
	}
	if u.Email != "" {
		t.Errorf("expected empty user, got %+v", u)
	}
}

func TestUserCtx_ValidUser(t *testing.T) {
	oid := primitive.NewObjectID()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{
		ID:    oid.Hex(),
		Email: "  Alice@Example.COM ",
		Name:  "Alice",
	})

	u, id, ok := authz.UserCtx(req)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if id != oid {
		t.Errorf("userID = %v, want %v", id, oid)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want Alice", u.Name)
	}
}

func TestUserCtx_MalformedID_FailsClosed(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{
		ID:    "not-an-object-id",
		Email: "alice@example.com",
	})

	if _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected ok=false for malformed user id")
	}
}
