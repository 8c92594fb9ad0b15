package testutil

import (
	"errors"
	"testing"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/money"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertAmount fails the test if got is not wantUnits minor units.
func AssertAmount(t *testing.T, label string, got money.Amount, wantUnits int64) {
	t.Helper()

	if got.Units() != wantUnits {
		t.Errorf("%s: expected %s, got %s", label, money.FromUnits(wantUnits), got)
	}
}
