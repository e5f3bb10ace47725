package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/credits/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Error Response Tests
// =============================================================================

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EQUOTA, http.StatusTooManyRequests},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.want {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestErrorResponse_IncludesRejectionReason(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/accounts/x", nil)

	ErrorResponse(rec, req, discardLogger(), domain.QuotaExceeded("credit.attempt_ai_action", 2, 2))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	var body JSONError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != domain.EQUOTA {
		t.Errorf("expected code %q, got %q", domain.EQUOTA, body.Error.Code)
	}
	if body.Error.Reason != string(domain.RejectQuotaExceeded) {
		t.Errorf("expected reason %q, got %q", domain.RejectQuotaExceeded, body.Error.Reason)
	}
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	sensitiveErr := errors.New("dial tcp 192.168.1.100:5432: connection refused")
	internalErr := domain.Internal(sensitiveErr, "store.with_account", "Failed to connect")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/accounts/x", nil)
	ErrorResponse(rec, req, discardLogger(), internalErr)

	body := rec.Body.String()
	if strings.Contains(body, "192.168") {
		t.Errorf("response exposes IP address: %s", body)
	}
	if strings.Contains(body, "store.with_account") {
		t.Errorf("response exposes internal operation: %s", body)
	}
	if !strings.Contains(body, "internal error") {
		t.Errorf("response should contain generic error, got: %s", body)
	}
}

func TestValidationErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	ve := domain.NewValidationError("handler.admin.change_tier", "tier", "Tier is required")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/admin/accounts/x/tier", nil)
	ValidationErrorResponse(rec, req, discardLogger(), ve)

	body := rec.Body.String()
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if strings.Contains(body, "change_tier") {
		t.Errorf("response exposes internal operation name: %s", body)
	}
	if !strings.Contains(body, "Tier is required") {
		t.Errorf("response should contain field message: %s", body)
	}
}

func TestConvenienceResponses(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, *http.Request, *slog.Logger)
		status int
		code   string
	}{
		{name: "unauthorized", write: UnauthorizedResponse, status: http.StatusUnauthorized, code: domain.EUNAUTHORIZED},
		{name: "forbidden", write: ForbiddenResponse, status: http.StatusForbidden, code: domain.EFORBIDDEN},
		{name: "not found", write: NotFoundResponse, status: http.StatusNotFound, code: domain.ENOTFOUND},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, httptest.NewRequest("GET", "/api/accounts/x", nil), discardLogger())

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			var body JSONError
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, body.Error.Code)
			}
		})
	}
}
