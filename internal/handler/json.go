package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/domain"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body is required.")
		case errors.As(err, &maxErr):
			return domain.Invalid(op, "Request body is too large.")
		default:
			return domain.Invalid(op, fmt.Sprintf("Malformed request body: %v", err))
		}
	}
	if dec.More() {
		return domain.Invalid(op, "Request body must contain a single JSON object.")
	}
	return nil
}

// pathAccountID parses the {id} path value.
func pathAccountID(r *http.Request, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid(op, "Invalid account ID.")
	}
	return id, nil
}

// =============================================================================
// Response Types
// =============================================================================

// AccountResponse is the JSON view of an account.
type AccountResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Tier               string     `json:"tier"`
	Balance            int64      `json:"balance"`
	OpeningBalance     int64      `json:"opening_balance"`
	MonthlyUsageCount  int        `json:"monthly_usage_count"`
	UsageCounterAnchor *time.Time `json:"usage_counter_anchor,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func newAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:                 a.ID,
		Tier:               a.Tier,
		Balance:            a.Balance,
		OpeningBalance:     a.OpeningBalance,
		MonthlyUsageCount:  a.MonthlyUsageCount,
		UsageCounterAnchor: a.UsageCounterAnchor,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// EntryResponse is the JSON view of a ledger entry.
type EntryResponse struct {
	ID            string          `json:"id"`
	Amount        int64           `json:"amount"`
	BalanceAfter  int64           `json:"balance_after"`
	Reason        string          `json:"reason"`
	Description   string          `json:"description,omitempty"`
	ResourceType  string          `json:"resource_type,omitempty"`
	ResourceID    string          `json:"resource_id,omitempty"`
	ActingAdminID *uuid.UUID      `json:"acting_admin_id,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func newEntryResponse(e *domain.LedgerEntry) *EntryResponse {
	if e == nil {
		return nil
	}
	resp := &EntryResponse{
		ID:            e.ID,
		Amount:        e.Amount,
		BalanceAfter:  e.BalanceAfter,
		Reason:        string(e.Reason),
		Description:   e.Description,
		ActingAdminID: e.ActingAdminID,
		Metadata:      e.Metadata,
		CreatedAt:     e.CreatedAt,
	}
	if e.Resource != nil {
		resp.ResourceType = e.Resource.Type
		resp.ResourceID = e.Resource.ID
	}
	return resp
}

// HistoryResponse is one page of an account statement.
type HistoryResponse struct {
	Entries    []EntryResponse `json:"entries"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	HasNext    bool            `json:"has_next"`
}

// QuotaResponse is the effective monthly AI usage of an account.
type QuotaResponse struct {
	Allowed      bool   `json:"allowed"`
	Unlimited    bool   `json:"unlimited"`
	Limit        int    `json:"limit,omitempty"`
	CurrentUsage int    `json:"current_usage"`
	Remaining    int    `json:"remaining"`
	Reason       string `json:"reason,omitempty"`
}

func newQuotaResponse(q *domain.QuotaStatus) QuotaResponse {
	return QuotaResponse{
		Allowed:      q.Allowed,
		Unlimited:    q.Unlimited,
		Limit:        q.Limit,
		CurrentUsage: q.CurrentUsage,
		Remaining:    q.Remaining(),
		Reason:       string(q.Reason),
	}
}

// AdjustResponse is returned by adjustments, refunds and tier changes.
type AdjustResponse struct {
	Account AccountResponse `json:"account"`
	Entry   *EntryResponse  `json:"entry,omitempty"`
}

// ReconcileResponse reports the conservation check of one account.
type ReconcileResponse struct {
	AccountID      uuid.UUID `json:"account_id"`
	Balance        int64     `json:"balance"`
	OpeningBalance int64     `json:"opening_balance"`
	EntrySum       int64     `json:"entry_sum"`
	EntryCount     int       `json:"entry_count"`
	Drift          int64     `json:"drift"`
	Balanced       bool      `json:"balanced"`
}
