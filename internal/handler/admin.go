package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/auth"
	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/service"
)

// AdminHandler handles administrative credit operations.
type AdminHandler struct {
	credits service.CreditService
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(credits service.CreditService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		credits: credits,
		logger:  logger,
	}
}

// RegisterRoutes registers admin routes with the provided middleware.
func (h *AdminHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireAdmin func(http.Handler) http.Handler,
) {
	mux.Handle("POST /api/admin/accounts", requireAdmin(http.HandlerFunc(h.OpenAccount)))
	mux.Handle("POST /api/admin/accounts/{id}/adjust", requireAdmin(http.HandlerFunc(h.Adjust)))
	mux.Handle("POST /api/admin/accounts/{id}/tier", requireAdmin(http.HandlerFunc(h.ChangeTier)))
	mux.Handle("POST /api/admin/accounts/{id}/refund", requireAdmin(http.HandlerFunc(h.Refund)))
	mux.Handle("GET /api/admin/accounts/{id}/reconcile", requireAdmin(http.HandlerFunc(h.Reconcile)))
}

// =============================================================================
// Request Types
// =============================================================================

// OpenAccountRequest is the body of POST /api/admin/accounts.
type OpenAccountRequest struct {
	AccountID string `json:"account_id"`
	Tier      string `json:"tier"`
}

// AdjustRequest is the body of POST /api/admin/accounts/{id}/adjust.
type AdjustRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// TierChangeRequest is the body of POST /api/admin/accounts/{id}/tier.
type TierChangeRequest struct {
	Tier string `json:"tier"`
}

// RefundRequest is the body of POST /api/admin/accounts/{id}/refund.
type RefundRequest struct {
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
}

// =============================================================================
// Handlers
// =============================================================================

// OpenAccount creates an account with its tier's starting balance.
func (h *AdminHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.open_account"

	var req OpenAccountRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	fields := map[string]string{}
	accountID, err := uuid.Parse(strings.TrimSpace(req.AccountID))
	if err != nil {
		fields["account_id"] = "Must be a UUID"
	}
	if strings.TrimSpace(req.Tier) == "" {
		fields["tier"] = "Tier is required"
	}
	if len(fields) > 0 {
		ValidationErrorResponse(w, r, h.logger, &domain.ValidationError{Op: op, Fields: fields})
		return
	}

	acct, err := h.credits.OpenAccount(r.Context(), accountID, strings.TrimSpace(req.Tier))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponse(acct))
}

// Adjust applies a signed manual adjustment.
func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.adjust"

	accountID, err := pathAccountID(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var req AdjustRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.credits.Adjust(r.Context(), domain.AdjustRequest{
		AccountID:     accountID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		ActingAdminID: auth.GetActorFromRequest(r).AccountID,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAdjustResponse(result))
}

// ChangeTier moves an account to a new tier.
func (h *AdminHandler) ChangeTier(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.change_tier"

	accountID, err := pathAccountID(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var req TierChangeRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Tier) == "" {
		ValidationErrorResponse(w, r, h.logger, domain.NewValidationError(op, "tier", "Tier is required"))
		return
	}

	result, err := h.credits.ChangeTier(r.Context(), domain.TierChangeRequest{
		AccountID:     accountID,
		NewTier:       strings.TrimSpace(req.Tier),
		ActingAdminID: auth.GetActorFromRequest(r).AccountID,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAdjustResponse(result))
}

// Refund credits an account for a spend that did not deliver.
func (h *AdminHandler) Refund(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.refund"

	accountID, err := pathAccountID(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var req RefundRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	admin := auth.GetActorFromRequest(r).AccountID
	refund := domain.RefundRequest{
		AccountID:     accountID,
		Amount:        req.Amount,
		Description:   req.Description,
		ActingAdminID: &admin,
	}
	if req.ResourceType != "" || req.ResourceID != "" {
		refund.Resource = &domain.ResourceRef{Type: req.ResourceType, ID: req.ResourceID}
	}

	result, err := h.credits.Refund(r.Context(), refund)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAdjustResponse(result))
}

// Reconcile checks balance == opening balance + sum(entries).
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.reconcile"

	accountID, err := pathAccountID(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	rec, err := h.credits.Reconcile(r.Context(), accountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{
		AccountID:      rec.AccountID,
		Balance:        rec.Balance,
		OpeningBalance: rec.OpeningBalance,
		EntrySum:       rec.EntrySum,
		EntryCount:     rec.EntryCount,
		Drift:          rec.Drift(),
		Balanced:       rec.Balanced(),
	})
}

func newAdjustResponse(result *domain.AdjustResult) AdjustResponse {
	return AdjustResponse{
		Account: newAccountResponse(result.Account),
		Entry:   newEntryResponse(result.Entry),
	}
}
