package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTaxonomyStatusCodes(t *testing.T) {
	cases := []struct {
		err    *ServiceError
		status int
		code   Code
	}{
		{Validation("bad input"), http.StatusBadRequest, CodeValidation},
		{Unauthorized("no token"), http.StatusUnauthorized, CodeUnauthorized},
		{Forbidden("admins only"), http.StatusForbidden, CodeForbidden},
		{NotFound("missing"), http.StatusNotFound, CodeNotFound},
		{Conflict("duplicate"), http.StatusConflict, CodeConflict},
		{RateLimited("slow down"), http.StatusTooManyRequests, CodeRateLimited},
		{Internal("boom", nil), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		if tc.err.HTTPStatus != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.err.Code, tc.err.HTTPStatus, tc.status)
		}
		if tc.err.Code != tc.code {
			t.Fatalf("code = %s, want %s", tc.err.Code, tc.code)
		}
	}
}

func TestGetServiceErrorUnwrapsChains(t *testing.T) {
	base := Conflict("email already exists")
	wrapped := fmt.Errorf("register: %w", base)

	got := GetServiceError(wrapped)
	if got == nil || got.Code != CodeConflict {
		t.Fatalf("GetServiceError(wrapped) = %v, want conflict", got)
	}

	if GetServiceError(stderrors.New("plain")) != nil {
		t.Fatalf("plain error should not classify")
	}
}

func TestInternalHidesCauseFromMessage(t *testing.T) {
	cause := stderrors.New("pq: connection refused")
	err := Internal("Server error", cause)

	if !stderrors.Is(err, cause) {
		t.Fatalf("cause should be reachable via Unwrap")
	}
	if err.Message != "Server error" {
		t.Fatalf("client message = %q, want generic", err.Message)
	}
}
