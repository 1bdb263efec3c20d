package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/firasbarkia/energy-connect-hub/internal/service"
)

func TestWriteServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrExpired, http.StatusGone},
		{service.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("confirm: %w", service.ErrExpired), http.StatusGone},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.want, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%v: expected json content type, got %q", tc.err, ct)
		}
	}
}

func TestWriteServiceErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pq: connection refused"))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal error" {
		t.Fatalf("internal errors must not leak, got %q", body["error"])
	}
}

func TestRequireUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reservations/me", nil)
	req.Header.Set(userIDHeader, "user-a")
	rec := httptest.NewRecorder()

	userID, ok := requireUserID(rec, req)
	if !ok || userID != "user-a" {
		t.Fatalf("expected user-a, got %q ok=%v", userID, ok)
	}

	rec = httptest.NewRecorder()
	if _, ok := requireUserID(rec, httptest.NewRequest(http.MethodGet, "/reservations/me", nil)); ok {
		t.Fatal("missing header must be rejected")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
