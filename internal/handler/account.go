package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/credits/internal/auth"
	"github.com/DukeRupert/credits/internal/pagination"
	"github.com/DukeRupert/credits/internal/service"
)

// AccountHandler serves an account's own balance, quota and statement.
type AccountHandler struct {
	credits    service.CreditService
	maxPerPage int
	logger     *slog.Logger
}

// NewAccountHandler creates a new AccountHandler. maxPerPage caps the
// history page size.
func NewAccountHandler(credits service.CreditService, maxPerPage int, logger *slog.Logger) *AccountHandler {
	if maxPerPage <= 0 {
		maxPerPage = pagination.MaxPerPage
	}
	return &AccountHandler{
		credits:    credits,
		maxPerPage: maxPerPage,
		logger:     logger,
	}
}

// RegisterRoutes registers account routes with the provided middleware.
func (h *AccountHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireActor func(http.Handler) http.Handler,
) {
	mux.Handle("GET /api/accounts/{id}", requireActor(http.HandlerFunc(h.Show)))
	mux.Handle("GET /api/accounts/{id}/history", requireActor(http.HandlerFunc(h.History)))
	mux.Handle("GET /api/accounts/{id}/quota", requireActor(http.HandlerFunc(h.Quota)))
}

// Show returns the account's tier, balance and usage counter.
func (h *AccountHandler) Show(w http.ResponseWriter, r *http.Request) {
	const op = "handler.account.show"

	accountID, err := pathAccountID(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !auth.GetActorFromRequest(r).CanRead(accountID) {
		ForbiddenResponse(w, r, h.logger)
		return
	}

	acct, err := h.credits.Account(r.Context(), accountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acct))
}

// History returns one page of the account statement, newest first.
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	const op = "handler.account.history"

	accountID, err := pathAccountID(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !auth.GetActorFromRequest(r).CanRead(accountID) {
		ForbiddenResponse(w, r, h.logger)
		return
	}

	params := pagination.FromQuery(r.URL.Query(), h.maxPerPage)
	page, err := h.credits.History(r.Context(), accountID, params.Page, params.PerPage)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := HistoryResponse{
		Entries:    make([]EntryResponse, 0, len(page.Entries)),
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
	}
	for i := range page.Entries {
		resp.Entries = append(resp.Entries, *newEntryResponse(&page.Entries[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Quota returns the effective monthly AI usage.
func (h *AccountHandler) Quota(w http.ResponseWriter, r *http.Request) {
	const op = "handler.account.quota"

	accountID, err := pathAccountID(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !auth.GetActorFromRequest(r).CanRead(accountID) {
		ForbiddenResponse(w, r, h.logger)
		return
	}

	status, err := h.credits.QuotaStatus(r.Context(), accountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuotaResponse(status))
}
