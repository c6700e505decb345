package todos_test

import (
	"net/http"
	"testing"
	"time"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	"github.com/dalemusser/todohub/internal/app/features/todos"
	"github.com/dalemusser/todohub/internal/domain/models"
	"github.com/dalemusser/todohub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (chi.Router, *mongo.Database, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := todos.NewHandler(db, apierrors.NewErrorLogger(logger), logger)
	return todos.Routes(h, testutil.NewSessionManager(t)), db, testutil.NewFixtures(t, db)
}

func serve(r chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTodos_RequireSession(t *testing.T) {
	router, _, _ := newRouter(t)
	rec := serve(router, testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestTodos_ListOnlyOwn(t *testing.T) {
	router, _, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	bob := fx.CreateUser(ctx, "bob@example.com", "")
	fx.CreateTodoDue(ctx, alice, "second", time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC))
	fx.CreateTodoDue(ctx, alice, "first", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	fx.CreateTodo(ctx, bob, "bob's")

	rec := serve(router, testutil.WithUser(testutil.NewRequest(http.MethodGet, "/"), alice))
	rec.AssertStatus(t, http.StatusOK)

	var list []models.Todo
	rec.DecodeJSON(t, &list)
	if len(list) != 2 {
		t.Fatalf("got %d todos, want 2", len(list))
	}
	if list[0].Name != "first" || list[1].Name != "second" {
		t.Errorf("order = [%s, %s]", list[0].Name, list[1].Name)
	}
}

func TestTodos_Create(t *testing.T) {
	router, _, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	mine := fx.CreateWorkgroup(ctx, "Launch", alice)
	other := fx.CreateWorkgroup(ctx, "Secret", fx.CreateUser(ctx, "eve@example.com", ""))

	rec := serve(router, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]string{
		"name":         "Write report",
		"project":      "Q3",
		"deadlineDate": "2030-06-01",
		"workgroupId":  mine.ID.Hex(),
	}), alice))
	rec.AssertStatus(t, http.StatusOK)

	var td models.Todo
	rec.DecodeJSON(t, &td)
	if td.Name != "Write report" || td.Project != "Q3" || td.UserID != alice.ID {
		t.Errorf("todo = %+v", td)
	}
	if !td.DeadlineDate.Equal(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("deadline = %v", td.DeadlineDate)
	}
	if td.WorkgroupID == nil || *td.WorkgroupID != mine.ID {
		t.Errorf("workgroup = %v", td.WorkgroupID)
	}

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"deadlineDate": "2030-06-01"}},
		{"missing deadline", map[string]string{"name": "x"}},
		{"bad deadline", map[string]string{"name": "x", "deadlineDate": "next tuesday"}},
		{"foreign workgroup", map[string]string{"name": "x", "deadlineDate": "2030-06-01", "workgroupId": other.ID.Hex()}},
		{"malformed workgroup", map[string]string{"name": "x", "deadlineDate": "2030-06-01", "workgroupId": "zzz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/", tt.body), alice))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestTodos_Update(t *testing.T) {
	router, db, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	bob := fx.CreateUser(ctx, "bob@example.com", "")
	td := fx.CreateTodo(ctx, alice, "Draft")

	rec := serve(router, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, "/"+td.ID.Hex(), map[string]any{
		"name":      "Final",
		"completed": true,
	}), alice))
	rec.AssertStatus(t, http.StatusOK)

	var got models.Todo
	rec.DecodeJSON(t, &got)
	if got.Name != "Final" || !got.Completed {
		t.Errorf("todo = %+v", got)
	}

	rec = serve(router, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, "/"+td.ID.Hex(), map[string]any{
		"name": "Hijacked",
	}), bob))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = serve(router, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, "/not-an-id", map[string]any{}), alice))
	rec.AssertStatus(t, http.StatusNotFound)

	var stored models.Todo
	if err := db.Collection("todos").FindOne(ctx, bson.M{"_id": td.ID}).Decode(&stored); err != nil {
		t.Fatalf("load todo: %v", err)
	}
	if stored.Name != "Final" {
		t.Errorf("stored name = %q, want Final", stored.Name)
	}
}

func TestTodos_Delete(t *testing.T) {
	router, _, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice@example.com", "")
	bob := fx.CreateUser(ctx, "bob@example.com", "")
	a := fx.CreateTodo(ctx, alice, "a")
	b := fx.CreateTodo(ctx, alice, "b")

	rec := serve(router, testutil.WithUser(testutil.NewRequest(http.MethodDelete, "/"+a.ID.Hex()), bob))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = serve(router, testutil.WithUser(testutil.NewRequest(http.MethodDelete, "/"+a.ID.Hex()), alice))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = serve(router, testutil.WithUser(testutil.NewRequest(http.MethodDelete, "/?id="+b.ID.Hex()), alice))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = serve(router, testutil.WithUser(testutil.NewRequest(http.MethodDelete, "/?id="+b.ID.Hex()), alice))
	rec.AssertStatus(t, http.StatusNotFound)
}
