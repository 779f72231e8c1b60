package util

import (
	"errors"
	"net/http"
	"testing"
)

func TestDomainErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{"invalid transition", NewInvalidTransition("Resolved", "Open"), "INVALID_TRANSITION", http.StatusConflict},
		{"cas conflict", NewCasConflict("raced", nil), "CAS_CONFLICT", http.StatusConflict},
		{"not found", NewNotFound("issue", nil), "NOT_FOUND", http.StatusNotFound},
		{"forbidden", NewForbidden("no"), "FORBIDDEN", http.StatusForbidden},
		{"transport", NewTransportError(errors.New("down")), "TRANSPORT_FAILED", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var domainErr *DomainError
			if !errors.As(tt.err, &domainErr) {
				t.Fatalf("expected DomainError, got %T", tt.err)
			}
			if domainErr.Code != tt.wantCode || domainErr.HTTPStatus != tt.wantStatus {
				t.Fatalf("got %s/%d, want %s/%d", domainErr.Code, domainErr.HTTPStatus, tt.wantCode, tt.wantStatus)
			}
		})
	}
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("disk full")
	mapped := ToDomainError(cause)
	if mapped.Code != "INTERNAL_ERROR" {
		t.Fatalf("code = %q, want INTERNAL_ERROR", mapped.Code)
	}
	if !errors.Is(mapped, cause) {
		t.Fatal("cause not preserved through Unwrap")
	}
	if ToDomainError(nil) != nil {
		t.Fatal("nil must map to nil")
	}
}
