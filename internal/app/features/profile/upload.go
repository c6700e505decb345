// internal/app/features/profile/upload.go
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	userstore "github.com/dalemusser/todohub/internal/app/store/users"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/authz"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// avatarTypes are the sniffed content types accepted as avatars.
var avatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /upload                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpload stores a multipart "file" as the caller's avatar and returns
// its public URL.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "upload avatar", errNotSignedIn)
		return
	}

	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxAvatarBytes+(1<<20))
	if err := r.ParseMultipartForm(h.MaxAvatarBytes); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse upload", err, "Upload must be a multipart form no larger than the size limit.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "upload avatar", err, "A file field named \"file\" is required.")
		return
	}
	defer file.Close()

	if header.Size <= 0 || header.Size > h.MaxAvatarBytes {
		h.ErrLog.LogBadRequest(w, r, "upload avatar", nil, "Avatar is empty or too large.")
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		h.ErrLog.LogBadRequest(w, r, "read upload", err, "Could not read the uploaded file.")
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	if !avatarTypes[contentType] {
		h.ErrLog.LogBadRequest(w, r, "upload avatar", nil, "Avatar must be a PNG, JPEG, GIF or WebP image.")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.ErrLog.LogServerError(w, r, "rewind upload", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	key, err := uploadAvatar(ctx, h.Storage, header.Filename, file, contentType)
	if err != nil {
		h.ErrLog.Write(w, r, "store avatar", apperr.Wrap(apperr.DependencyFailure, "The image could not be stored.", err))
		return
	}
	url := h.Storage.URL(key)

	user, err := h.users.UpdateImage(ctx, uid, url)
	if err != nil {
		if derr := h.Storage.Delete(ctx, key); derr != nil {
			h.Log.Warn("orphaned avatar", zap.String("key", key), zap.Error(derr))
		}
		if errors.Is(err, userstore.ErrNotFound) {
			h.ErrLog.Write(w, r, "upload avatar", apperr.New(apperr.Unauthenticated, "Account no longer exists."))
			return
		}
		h.ErrLog.LogServerError(w, r, "save avatar url", err)
		return
	}

	h.Log.Info("avatar uploaded",
		zap.String("user_id", uid.Hex()),
		zap.String("key", key),
		zap.Int64("size", header.Size))
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"url": url, "user": user})
}

// uploadAvatar stores an avatar under a unique path and returns the path.
func uploadAvatar(ctx context.Context, store storage.Store, filename string, reader io.Reader, contentType string) (string, error) {
	path := avatarPath(filename, time.Now().UTC())
	opts := &storage.PutOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	}
	if err := store.Put(ctx, path, reader, opts); err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}
	return path, nil
}

// avatarPath generates avatars/YYYY/MM/<uuid><ext>; ext is the lowercased
// extension of filename, dropped when implausibly long.
func avatarPath(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("avatars/%04d/%02d/%s%s", now.Year(), now.Month(), uuid.New().String(), ext)
}
