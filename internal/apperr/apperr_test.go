package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"bad request", BadRequest("bad"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("no token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("not yours"), http.StatusForbidden},
		{"not found", NotFound("missing"), http.StatusNotFound},
		{"conflict", Conflict("duplicate"), http.StatusConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			appErr, ok := As(tc.err)
			if !ok {
				t.Fatalf("Expected %v to be an AppError", tc.err)
			}
			if appErr.StatusCode != tc.expected {
				t.Errorf("Expected status %d, got %d", tc.expected, appErr.StatusCode)
			}
			if !IsStatus(tc.err, tc.expected) {
				t.Errorf("Expected IsStatus(%d) to hold", tc.expected)
			}
		})
	}
}

func TestAsOnForeignError(t *testing.T) {
	if _, ok := As(errors.New("plain")); ok {
		t.Error("Expected plain error not to match")
	}
	if IsStatus(errors.New("plain"), http.StatusBadRequest) {
		t.Error("Expected IsStatus false for plain error")
	}
}

func TestAsUnwrapsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("loading exam: %w", NotFound("Exam not found"))
	appErr, ok := As(wrapped)
	if !ok {
		t.Fatal("Expected wrapped AppError to match")
	}
	if appErr.Message != "Exam not found" {
		t.Errorf("Unexpected message %q", appErr.Message)
	}
}
