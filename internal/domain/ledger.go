// Package domain contains core business types and interfaces.
//
// This file defines accounts, ledger entries and the closed set of reason
// codes that tag every balance change.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReasonCode tags a ledger entry with the action that caused it.
//
// The set is closed and versioned: adding a code is backward compatible,
// removing one is not.
type ReasonCode string

const (
	ReasonDocumentUpload          ReasonCode = "DOCUMENT_UPLOAD"
	ReasonAISynthesis             ReasonCode = "AI_GENERATE_SYNTHESIS"
	ReasonAIActionPlan            ReasonCode = "AI_GENERATE_ACTION_PLAN"
	ReasonQuestionnaireAssignment ReasonCode = "QUESTIONNAIRE_ASSIGNMENT"
	ReasonAdminAdjustment         ReasonCode = "ADMIN_ADJUSTMENT"
	ReasonTierChange              ReasonCode = "TIER_CHANGE"
	ReasonRefund                  ReasonCode = "REFUND"
)

var reasonCodes = map[ReasonCode]bool{
	ReasonDocumentUpload:          true,
	ReasonAISynthesis:             true,
	ReasonAIActionPlan:            true,
	ReasonQuestionnaireAssignment: true,
	ReasonAdminAdjustment:         true,
	ReasonTierChange:              true,
	ReasonRefund:                  true,
}

// Valid returns true if r is a member of the reason code enumeration.
func (r ReasonCode) Valid() bool {
	return reasonCodes[r]
}

// IsAI returns true for AI-generation reason codes.
func (r ReasonCode) IsAI() bool {
	return r == ReasonAISynthesis || r == ReasonAIActionPlan
}

// Account is the credit- and quota-holding identity.
//
// Profile data lives with the identity collaborator; the engine only knows
// the account by ID.
type Account struct {
	ID                 uuid.UUID
	Tier               string
	Balance            int64
	OpeningBalance     int64 // Tier starting balance at creation
	MonthlyUsageCount  int
	UsageCounterAnchor *time.Time // First day of the month the counter applies to
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ResourceRef points at the object a spend was made for.
type ResourceRef struct {
	Type string
	ID   string
}

// LedgerEntry is one immutable, signed audit record of a balance change.
type LedgerEntry struct {
	ID            string
	AccountID     uuid.UUID
	Amount        int64 // Negative = debit, positive = credit
	BalanceAfter  int64
	Reason        ReasonCode
	Description   string
	Resource      *ResourceRef
	ActingAdminID *uuid.UUID
	Metadata      json.RawMessage
	CreatedAt     time.Time
}

// IsDebit returns true if the entry reduced the balance.
func (e *LedgerEntry) IsDebit() bool {
	return e.Amount < 0
}

// HistoryPage is one page of an account statement, newest entries first.
type HistoryPage struct {
	Entries    []LedgerEntry
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	HasNext    bool
}

// Reconciliation is the outcome of checking balance == opening + sum(entries).
type Reconciliation struct {
	AccountID      uuid.UUID
	Balance        int64
	OpeningBalance int64
	EntrySum       int64
	EntryCount     int
}

// Drift returns how far the stored balance is from the ledger-derived one.
func (r *Reconciliation) Drift() int64 {
	return r.Balance - (r.OpeningBalance + r.EntrySum)
}

// Balanced returns true if the conservation invariant holds.
func (r *Reconciliation) Balanced() bool {
	return r.Drift() == 0
}
