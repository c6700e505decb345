package errors

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/todohub/internal/app/system/apperr"
)

// maxJSONBody caps request bodies accepted by DecodeJSON.
const maxJSONBody = 1 << 20

// DecodeJSON reads a single JSON object from r into v. Failures come back
// as Validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.Validation, "Request body is required.")
		}
		return apperr.Wrap(apperr.Validation, "Request body is not valid JSON.", err)
	}
	return nil
}
