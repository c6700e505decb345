package profile_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	"github.com/dalemusser/todohub/internal/app/features/profile"
	"github.com/dalemusser/todohub/internal/domain/models"
	"github.com/dalemusser/todohub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newRouter(t *testing.T, maxBytes int64) (chi.Router, *mongo.Database, *storage.Local) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store, err := storage.NewLocal(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	logger := zap.NewNop()
	h := profile.NewHandler(db, store, maxBytes, apierrors.NewErrorLogger(logger), logger)
	r := chi.NewRouter()
	profile.MountRoutes(r, h, testutil.NewSessionManager(t))
	return r, db, store
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func loadUser(t *testing.T, db *mongo.Database, u models.User) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var out models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&out); err != nil {
		t.Fatalf("load user: %v", err)
	}
	return out
}

func TestUpdateName(t *testing.T) {
	router, db, _ := newRouter(t, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := testutil.NewFixtures(t, db).CreateUser(ctx, "alice@example.com", "Alice")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/user/update", map[string]string{"name": "<b>Alice</b> Cooper"}), alice))
	rec.AssertStatus(t, http.StatusOK)
	if got := loadUser(t, db, alice); got.Name != "Alice Cooper" {
		t.Errorf("name = %q", got.Name)
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/user/update", map[string]string{"name": ""}), alice))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/user/update", map[string]string{"name": "x"}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestUpdateImage(t *testing.T) {
	router, db, _ := newRouter(t, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := testutil.NewFixtures(t, db).CreateUser(ctx, "alice@example.com", "")

	tests := []struct {
		image  string
		status int
	}{
		{"https://cdn.example.com/a.png", http.StatusOK},
		{"/files/avatars/2030/01/x.png", http.StatusOK},
		{"javascript:alert(1)", http.StatusBadRequest},
		{"//evil.example.com/a.png", http.StatusBadRequest},
		{"", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/user/update-image", map[string]string{"image": tt.image}), alice))
			rec.AssertStatus(t, tt.status)
		})
	}
	if got := loadUser(t, db, alice); got.Image != "/files/avatars/2030/01/x.png" {
		t.Errorf("image = %q", got.Image)
	}
}

func TestUpload(t *testing.T) {
	router, db, store := newRouter(t, 1024)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := testutil.NewFixtures(t, db).CreateUser(ctx, "alice@example.com", "")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.WithUser(multipartRequest(t, "file", "me.PNG", pngHeader), alice))
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		URL string `json:"url"`
	}
	rec.DecodeJSON(t, &resp)
	if !strings.HasPrefix(resp.URL, "/files/avatars/") || !strings.HasSuffix(resp.URL, ".png") {
		t.Fatalf("url = %q", resp.URL)
	}
	if got := loadUser(t, db, alice); got.Image != resp.URL {
		t.Errorf("image = %q, want %q", got.Image, resp.URL)
	}

	full, err := store.GetFullPath(strings.TrimPrefix(resp.URL, "/files/"))
	if err != nil {
		t.Fatalf("FullPath: %v", err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Error("stored bytes differ from upload")
	}
}

func TestUpload_Rejects(t *testing.T) {
	router, db, _ := newRouter(t, 1024)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := testutil.NewFixtures(t, db).CreateUser(ctx, "alice@example.com", "")

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"not an image", multipartRequest(t, "file", "notes.txt", []byte("hello world"))},
		{"too large", multipartRequest(t, "file", "big.png", append(append([]byte{}, pngHeader...), make([]byte, 4096)...))},
		{"wrong field", multipartRequest(t, "avatar", "me.png", pngHeader)},
		{"not multipart", testutil.NewJSONRequest(t, http.MethodPost, "/upload", map[string]string{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, testutil.WithUser(tt.req, alice))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
	if got := loadUser(t, db, alice); got.Image != "" {
		t.Errorf("image should be unchanged, got %q", got.Image)
	}
}
