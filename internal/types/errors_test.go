package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestAppErrorImplementsError verifies that *AppError satisfies the error interface.
func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationMissingTitle,
		Message: MsgNoTitle,
	}

	expected := "validation_missing_title: No title provided"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorErrorFormat_WithCause(t *testing.T) {
	appErr := NewAppError(ErrCodeInternalDB, "failed to save account", errors.New("conn reset"))

	expected := "internal_database_error: failed to save account: conn reset"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("database connection failed")
	appErr := NewAppError(ErrCodeInternalDB, "failed to load account", underlying)

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() returned unexpected error: got %v, want %v", appErr.Unwrap(), underlying)
	}
	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should see through AppError")
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeAuthTokenInvalid, MsgInvalidToken, nil)
	wrappedErr := fmt.Errorf("handler failed: %w", appErr)

	var target *AppError
	if !errors.As(wrappedErr, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeAuthTokenInvalid {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeAuthTokenInvalid)
	}
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationMissingTitle, http.StatusBadRequest},
		{ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{ErrCodeAuthTokenMissing, http.StatusForbidden},
		{ErrCodeAuthTokenInvalid, http.StatusForbidden},
		{ErrCodeLimitMonthlyQuota, http.StatusForbidden},
		{ErrCodeNotFoundAccount, http.StatusNotFound},
		{ErrCodeNotFoundMovie, http.StatusNotFound},
		{ErrCodeNotFoundRoute, http.StatusNotFound},
		{ErrCodeUpstreamCatalogUnreachable, http.StatusInternalServerError},
		{ErrCodeUpstreamCatalog, http.StatusInternalServerError},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorWithDetails_DoesNotMutateOriginal(t *testing.T) {
	orig := NewAppErrorWithDetails(ErrCodeLimitMonthlyQuota, "limit", nil, map[string]any{"tier": "basic"})
	merged := orig.WithDetails(map[string]any{"limit": 5})

	if len(orig.Details) != 1 {
		t.Errorf("original details mutated: %v", orig.Details)
	}
	if merged.Details["tier"] != "basic" || merged.Details["limit"] != 5 {
		t.Errorf("merged details = %v", merged.Details)
	}
}
