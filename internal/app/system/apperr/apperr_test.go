package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/todohub/internal/app/system/apperr"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.Unauthenticated, http.StatusUnauthorized},
		{apperr.Unauthorized, http.StatusUnauthorized},
		{apperr.Forbidden, http.StatusForbidden},
		{apperr.NotFound, http.StatusNotFound},
		{apperr.Conflict, http.StatusConflict},
		{apperr.Validation, http.StatusBadRequest},
		{apperr.DependencyFailure, http.StatusInternalServerError},
		{apperr.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Status(); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAs_Wrapped(t *testing.T) {
	cause := errors.New("db down")
	err := fmt.Errorf("accept: %w", apperr.Wrap(apperr.NotFound, "Invitation not found.", cause))

	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.NotFound {
		t.Errorf("As = %v, %v; want NotFound", ae, ok)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should stay reachable through Unwrap")
	}
}

func TestAs_Unclassified(t *testing.T) {
	if _, ok := apperr.As(errors.New("boom")); ok {
		t.Error("plain error should not be classified")
	}
	if _, ok := apperr.As(nil); ok {
		t.Error("nil error should not be classified")
	}
}

func TestResponseCode(t *testing.T) {
	e := apperr.New(apperr.DependencyFailure, "Invitation email could not be sent.")
	if e.ResponseCode() != "dependency_failed" {
		t.Errorf("ResponseCode = %q", e.ResponseCode())
	}
	e.Code = "notification_failed"
	if e.ResponseCode() != "notification_failed" {
		t.Errorf("ResponseCode = %q", e.ResponseCode())
	}
}
