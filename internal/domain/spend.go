// Package domain contains core business types and interfaces.
//
// This file defines the spend state machine, the action cost table and the
// request/result types of the credit coordinator.
package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SpendState is a step of the spend state machine.
type SpendState string

const (
	SpendRequested          SpendState = "requested"
	SpendEntitlementChecked SpendState = "entitlement_checked"
	SpendQuotaChecked       SpendState = "quota_checked"
	SpendLedgerDebited      SpendState = "ledger_debited"
	SpendCompleted          SpendState = "completed"
	SpendRejected           SpendState = "rejected"
)

// Action describes the fixed price and gating of one billable action.
type Action struct {
	Reason  ReasonCode
	Cost    int64
	MinTier string // Empty when the action has no tier requirement
	AI      bool   // Subject to the monthly AI quota
}

// ActionTable maps reason codes to their action definition.
type ActionTable map[ReasonCode]Action

// NewActionTable validates actions and indexes them by reason.
func NewActionTable(actions []Action) (ActionTable, error) {
	t := make(ActionTable, len(actions))
	for _, a := range actions {
		if !a.Reason.Valid() {
			return nil, fmt.Errorf("unknown reason code %q", a.Reason)
		}
		if a.Cost < 0 {
			return nil, fmt.Errorf("action %s: cost must not be negative", a.Reason)
		}
		if _, dup := t[a.Reason]; dup {
			return nil, fmt.Errorf("duplicate action %s", a.Reason)
		}
		if a.Reason.IsAI() {
			a.AI = true
		}
		t[a.Reason] = a
	}
	return t, nil
}

// Lookup returns the action registered for reason.
func (t ActionTable) Lookup(reason ReasonCode) (Action, bool) {
	a, ok := t[reason]
	return a, ok
}

// DefaultActions is the cost table used when no catalog file overrides it.
func DefaultActions() ActionTable {
	return ActionTable{
		ReasonDocumentUpload:          {Reason: ReasonDocumentUpload, Cost: 5},
		ReasonQuestionnaireAssignment: {Reason: ReasonQuestionnaireAssignment, Cost: 10, MinTier: TierStarter},
		ReasonAISynthesis:             {Reason: ReasonAISynthesis, Cost: 20, AI: true},
		ReasonAIActionPlan:            {Reason: ReasonAIActionPlan, Cost: 15, MinTier: TierStarter, AI: true},
	}
}

// SpendRequest asks the coordinator to consume credits for an action.
type SpendRequest struct {
	AccountID   uuid.UUID
	Reason      ReasonCode
	Cost        int64 // Zero means "use the action table cost"
	Description string
	Resource    *ResourceRef
}

// SpendResult is the terminal state of a spend attempt.
type SpendResult struct {
	State   SpendState
	Reason  RejectReason // Set when State is SpendRejected
	Cost    int64
	Balance int64
	Entry   *LedgerEntry // Nil for rejections and super-tier spends
	Quota   *QuotaStatus // Set for AI actions
}

// Completed returns true if the spend went through.
func (r *SpendResult) Completed() bool {
	return r != nil && r.State == SpendCompleted
}

// DebitParams describes a ledger debit. Amount is positive; the entry is
// recorded with the negated value.
type DebitParams struct {
	AccountID     uuid.UUID
	Amount        int64
	Reason        ReasonCode
	Description   string
	Resource      *ResourceRef
	ActingAdminID *uuid.UUID
	Metadata      json.RawMessage
}

// CreditParams describes a ledger credit. Amount is positive.
type CreditParams struct {
	AccountID     uuid.UUID
	Amount        int64
	Reason        ReasonCode
	Description   string
	Resource      *ResourceRef
	ActingAdminID *uuid.UUID
	Metadata      json.RawMessage
}

// DebitResult is returned by a successful ledger debit.
type DebitResult struct {
	Balance int64
	Entry   *LedgerEntry // Nil when the account is on the super-tier
}

// AdjustRequest is an administrator's signed manual balance change.
type AdjustRequest struct {
	AccountID     uuid.UUID
	Amount        int64
	Reason        string
	ActingAdminID uuid.UUID
}

// TierChangeRequest moves an account to a new tier.
type TierChangeRequest struct {
	AccountID     uuid.UUID
	NewTier       string
	ActingAdminID uuid.UUID
}

// RefundRequest returns credits for a spend that did not deliver.
type RefundRequest struct {
	AccountID     uuid.UUID
	Amount        int64
	Description   string
	Resource      *ResourceRef
	ActingAdminID *uuid.UUID
}

// AdjustResult is the outcome of an adjustment, refund or tier change.
type AdjustResult struct {
	Account *Account
	Entry   *LedgerEntry // Nil when nothing changed
}
