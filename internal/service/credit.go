// Package service contains the business logic layer.
//
// This file implements the credit coordinator. Every operation locks one
// account through store.WithAccount and runs its gates and writes inside
// that unit of work, so a rejection or failure leaves no partial state.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/metrics"
	"github.com/DukeRupert/credits/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// CreditService is the in-process contract used by feature-gating call sites
// and the admin surfaces.
type CreditService interface {
	// AttemptSpend runs the spend state machine for an action. Actions marked
	// AI in the action table also pass the quota gate.
	AttemptSpend(ctx context.Context, req domain.SpendRequest) (*domain.SpendResult, error)

	// AttemptAIAction is AttemptSpend with the quota gate always applied.
	AttemptAIAction(ctx context.Context, req domain.SpendRequest) (*domain.SpendResult, error)

	// Adjust applies a signed administrative adjustment.
	Adjust(ctx context.Context, req domain.AdjustRequest) (*domain.AdjustResult, error)

	// ChangeTier moves an account to a new tier and replaces its balance with
	// the tier's starting balance.
	ChangeTier(ctx context.Context, req domain.TierChangeRequest) (*domain.AdjustResult, error)

	// Refund credits an account for a spend that did not deliver.
	Refund(ctx context.Context, req domain.RefundRequest) (*domain.AdjustResult, error)

	// OpenAccount creates an account with its tier's starting balance.
	OpenAccount(ctx context.Context, accountID uuid.UUID, tier string) (*domain.Account, error)

	// Account returns the current account state.
	Account(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)

	// QuotaStatus returns the effective monthly AI usage without writing.
	QuotaStatus(ctx context.Context, accountID uuid.UUID) (*domain.QuotaStatus, error)

	// History returns one page of the account statement, newest first.
	History(ctx context.Context, accountID uuid.UUID, page, pageSize int) (*domain.HistoryPage, error)

	// Reconcile checks balance == opening balance + sum(entries).
	Reconcile(ctx context.Context, accountID uuid.UUID) (*domain.Reconciliation, error)
}

// =============================================================================
// Implementation
// =============================================================================

type creditService struct {
	store   store.Store
	tiers   TierCatalog
	actions domain.ActionTable
	quota   *quotaService
	ledger  *ledgerService
	logger  *slog.Logger
}

// NewCreditService creates a new CreditService over a store, a tier catalog
// and the action cost table.
func NewCreditService(st store.Store, tiers TierCatalog, actions domain.ActionTable, logger *slog.Logger, opts ...Option) CreditService {
	o := newOptions(opts)
	return &creditService{
		store:   st,
		tiers:   tiers,
		actions: actions,
		quota:   newQuotaService(st, tiers, logger, o),
		ledger:  newLedgerService(st, tiers, logger, o),
		logger:  logger,
	}
}

// AttemptSpend runs the spend state machine.
func (s *creditService) AttemptSpend(ctx context.Context, req domain.SpendRequest) (*domain.SpendResult, error) {
	return s.spend(ctx, "credit.attempt_spend", req, false)
}

// AttemptAIAction runs the spend state machine with the quota gate.
func (s *creditService) AttemptAIAction(ctx context.Context, req domain.SpendRequest) (*domain.SpendResult, error) {
	return s.spend(ctx, "credit.attempt_ai_action", req, true)
}

func (s *creditService) spend(ctx context.Context, op string, req domain.SpendRequest, aiAction bool) (*domain.SpendResult, error) {
	if !req.Reason.Valid() {
		return nil, domain.Invalid(op, "Unknown reason code.")
	}
	if req.Cost < 0 {
		return nil, domain.Invalid(op, "Cost must not be negative.")
	}

	action, ok := s.actions.Lookup(req.Reason)
	cost := req.Cost
	if cost == 0 {
		if !ok {
			return nil, domain.Invalid(op, fmt.Sprintf("No cost is configured for %s.", req.Reason))
		}
		cost = action.Cost
	}
	gateQuota := aiAction || action.AI || req.Reason.IsAI()

	result := &domain.SpendResult{State: domain.SpendRequested, Cost: cost}
	err := s.store.WithAccount(ctx, req.AccountID, func(tx store.AccountTx) error {
		acct := tx.Account()
		result.Balance = acct.Balance

		tier, err := s.tiers.Tier(ctx, acct.Tier)
		if err != nil {
			return domain.Internal(err, op, "failed to resolve tier")
		}

		// Entitlement
		if action.MinTier != "" {
			required, err := s.tiers.Tier(ctx, action.MinTier)
			if err != nil {
				return domain.Internal(err, op, "failed to resolve required tier")
			}
			if !domain.ResolveEntitlement(tier, required) {
				return domain.TierInsufficient(op, acct.Tier, action.MinTier)
			}
		}
		result.State = domain.SpendEntitlementChecked

		// Quota
		var metadata json.RawMessage
		if gateQuota {
			status := s.quota.checkTx(ctx, tx, tier)
			result.Quota = &status
			switch status.Reason {
			case domain.RejectFeatureNotIncluded:
				return domain.FeatureNotIncluded(op, acct.Tier)
			case domain.RejectQuotaExceeded:
				return domain.QuotaExceeded(op, status.CurrentUsage, status.Limit)
			}
			if !status.Unlimited {
				metadata, _ = json.Marshal(map[string]int{
					"quota_usage": status.CurrentUsage + 1,
					"quota_limit": status.Limit,
				})
			}
		}
		result.State = domain.SpendQuotaChecked

		// Ledger
		if cost > 0 {
			debit, err := s.ledger.debitTx(ctx, tx, tier, domain.DebitParams{
				AccountID:   req.AccountID,
				Amount:      cost,
				Reason:      req.Reason,
				Description: req.Description,
				Resource:    req.Resource,
				Metadata:    metadata,
			}, true)
			if err != nil {
				return err
			}
			result.Balance = debit.Balance
			result.Entry = debit.Entry
		}
		result.State = domain.SpendLedgerDebited

		if gateQuota && !result.Quota.Unlimited {
			n, err := tx.IncrementUsage(ctx)
			if err != nil {
				return domain.Internal(err, op, "failed to increment usage")
			}
			result.Quota.CurrentUsage = n
			result.Quota.Allowed = n < result.Quota.Limit
		}
		return nil
	})

	if err != nil {
		if reason := domain.RejectionReason(err); reason != "" {
			metrics.SpendRejected(string(req.Reason), string(reason))
			s.logger.Info("Spend rejected",
				"account_id", req.AccountID,
				"reason", req.Reason,
				"rejection", reason,
				"state", result.State,
			)
			return &domain.SpendResult{
				State:   domain.SpendRejected,
				Reason:  reason,
				Cost:    cost,
				Balance: result.Balance,
				Quota:   result.Quota,
			}, err
		}
		metrics.SpendFailed(string(req.Reason))
		s.logger.Error("Spend failed",
			"account_id", req.AccountID,
			"reason", req.Reason,
			"state", result.State,
			"error", err,
		)
		return nil, storeError(err, op, req.AccountID)
	}

	result.State = domain.SpendCompleted
	metrics.SpendCompleted(string(req.Reason))
	if result.Entry != nil {
		metrics.EntryWritten(string(req.Reason), result.Entry.Amount)
	}
	s.logger.Info("Spend completed",
		"account_id", req.AccountID,
		"reason", req.Reason,
		"cost", cost,
		"balance", result.Balance,
	)
	return result, nil
}

// Adjust applies a signed administrative adjustment.
func (s *creditService) Adjust(ctx context.Context, req domain.AdjustRequest) (*domain.AdjustResult, error) {
	const op = "credit.adjust"

	reason := strings.TrimSpace(req.Reason)
	switch {
	case req.Amount == 0:
		return nil, domain.Invalid(op, "Adjustment amount must not be zero.")
	case req.Amount == math.MinInt64:
		return nil, domain.Invalid(op, "Adjustment amount is out of range.")
	case reason == "":
		return nil, domain.Invalid(op, "A reason is required for manual adjustments.")
	case req.ActingAdminID == uuid.Nil:
		return nil, domain.Invalid(op, "The acting administrator is required.")
	case req.ActingAdminID == req.AccountID:
		return nil, domain.Forbidden(op, "Administrators may not adjust their own account.")
	}

	admin := req.ActingAdminID
	description := fmt.Sprintf("Manual adjustment by admin %s: %s", admin, reason)

	var result domain.AdjustResult
	err := s.store.WithAccount(ctx, req.AccountID, func(tx store.AccountTx) error {
		if req.Amount > 0 {
			entry, err := s.ledger.creditTx(ctx, tx, domain.CreditParams{
				AccountID:     req.AccountID,
				Amount:        req.Amount,
				Reason:        domain.ReasonAdminAdjustment,
				Description:   description,
				ActingAdminID: &admin,
			})
			if err != nil {
				return err
			}
			result.Entry = entry
		} else {
			tier, err := s.tiers.Tier(ctx, tx.Account().Tier)
			if err != nil {
				return domain.Internal(err, op, "failed to resolve tier")
			}
			debit, err := s.ledger.debitTx(ctx, tx, tier, domain.DebitParams{
				AccountID:     req.AccountID,
				Amount:        -req.Amount,
				Reason:        domain.ReasonAdminAdjustment,
				Description:   description,
				ActingAdminID: &admin,
			}, false)
			if err != nil {
				return err
			}
			result.Entry = debit.Entry
		}
		acct := tx.Account()
		result.Account = &acct
		return nil
	})
	if err != nil {
		return nil, s.adminError(err, op, req.AccountID, admin)
	}

	metrics.EntryWritten(string(domain.ReasonAdminAdjustment), result.Entry.Amount)
	s.logger.Info("Balance adjusted",
		"account_id", req.AccountID,
		"admin_id", admin,
		"amount", req.Amount,
		"balance", result.Account.Balance,
	)
	return &result, nil
}

// ChangeTier replaces the account's tier and balance together.
func (s *creditService) ChangeTier(ctx context.Context, req domain.TierChangeRequest) (*domain.AdjustResult, error) {
	const op = "credit.change_tier"

	switch {
	case req.ActingAdminID == uuid.Nil:
		return nil, domain.Invalid(op, "The acting administrator is required.")
	case req.ActingAdminID == req.AccountID:
		return nil, domain.Forbidden(op, "Administrators may not change their own tier.")
	}

	newTier, err := s.tiers.Tier(ctx, req.NewTier)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve tier")
	}
	if !newTier.Known {
		return nil, domain.Invalid(op, fmt.Sprintf("Unknown tier %q.", req.NewTier))
	}

	admin := req.ActingAdminID
	var (
		result  domain.AdjustResult
		oldTier string
	)
	err = s.store.WithAccount(ctx, req.AccountID, func(tx store.AccountTx) error {
		acct := tx.Account()
		oldTier = acct.Tier
		if acct.Tier == newTier.ID {
			result.Account = &acct
			return nil
		}

		delta := newTier.StartingBalance - acct.Balance
		if err := tx.SetTierAndBalance(ctx, newTier.ID, newTier.StartingBalance); err != nil {
			return domain.Internal(err, op, "failed to update tier")
		}
		if delta != 0 {
			entry := &domain.LedgerEntry{
				Amount:        delta,
				BalanceAfter:  newTier.StartingBalance,
				Reason:        domain.ReasonTierChange,
				Description:   fmt.Sprintf("Tier changed from %s to %s by admin %s", acct.Tier, newTier.ID, admin),
				ActingAdminID: &admin,
			}
			if err := tx.AppendEntry(ctx, entry); err != nil {
				return domain.Internal(err, op, "failed to write ledger entry")
			}
			result.Entry = entry
		}
		updated := tx.Account()
		result.Account = &updated
		return nil
	})
	if err != nil {
		return nil, s.adminError(err, op, req.AccountID, admin)
	}

	if result.Entry != nil {
		metrics.EntryWritten(string(domain.ReasonTierChange), result.Entry.Amount)
	}
	s.logger.Info("Tier changed",
		"account_id", req.AccountID,
		"admin_id", admin,
		"from", oldTier,
		"to", newTier.ID,
		"balance", result.Account.Balance,
	)
	return &result, nil
}

// Refund credits an account for a spend that did not deliver.
func (s *creditService) Refund(ctx context.Context, req domain.RefundRequest) (*domain.AdjustResult, error) {
	const op = "credit.refund"

	if req.Amount <= 0 {
		return nil, domain.Invalid(op, "Refund amount must be positive.")
	}
	if req.ActingAdminID != nil && *req.ActingAdminID == req.AccountID {
		return nil, domain.Forbidden(op, "Administrators may not refund their own account.")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Refund"
	}

	var result domain.AdjustResult
	err := s.store.WithAccount(ctx, req.AccountID, func(tx store.AccountTx) error {
		entry, err := s.ledger.creditTx(ctx, tx, domain.CreditParams{
			AccountID:     req.AccountID,
			Amount:        req.Amount,
			Reason:        domain.ReasonRefund,
			Description:   description,
			Resource:      req.Resource,
			ActingAdminID: req.ActingAdminID,
		})
		if err != nil {
			return err
		}
		acct := tx.Account()
		result = domain.AdjustResult{Account: &acct, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, req.AccountID)
	}

	metrics.EntryWritten(string(domain.ReasonRefund), result.Entry.Amount)
	s.logger.Info("Refund issued",
		"account_id", req.AccountID,
		"amount", req.Amount,
		"balance", result.Account.Balance,
	)
	return &result, nil
}

// OpenAccount creates an account with its tier's starting balance.
func (s *creditService) OpenAccount(ctx context.Context, accountID uuid.UUID, tier string) (*domain.Account, error) {
	const op = "credit.open_account"

	if accountID == uuid.Nil {
		return nil, domain.Invalid(op, "Account ID is required.")
	}
	def, err := s.tiers.Tier(ctx, tier)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve tier")
	}
	if !def.Known {
		return nil, domain.Invalid(op, fmt.Sprintf("Unknown tier %q.", tier))
	}

	acct := &domain.Account{
		ID:             accountID,
		Tier:           def.ID,
		Balance:        def.StartingBalance,
		OpeningBalance: def.StartingBalance,
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return nil, storeError(err, op, accountID)
	}

	s.logger.Info("Account opened",
		"account_id", accountID,
		"tier", def.ID,
		"balance", acct.Balance,
	)
	return acct, nil
}

// Account returns the current account state.
func (s *creditService) Account(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	const op = "credit.account"

	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, storeError(err, op, accountID)
	}
	return acct, nil
}

// QuotaStatus returns the effective monthly AI usage.
func (s *creditService) QuotaStatus(ctx context.Context, accountID uuid.UUID) (*domain.QuotaStatus, error) {
	return s.quota.Usage(ctx, accountID)
}

// History returns one page of the account statement.
func (s *creditService) History(ctx context.Context, accountID uuid.UUID, page, pageSize int) (*domain.HistoryPage, error) {
	return s.ledger.History(ctx, accountID, page, pageSize)
}

// Reconcile checks the conservation invariant for one account. The account
// is locked while its entries are summed so no spend can interleave.
func (s *creditService) Reconcile(ctx context.Context, accountID uuid.UUID) (*domain.Reconciliation, error) {
	const op = "credit.reconcile"

	var rec domain.Reconciliation
	err := s.store.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
		sum, count, err := tx.SumEntries(ctx)
		if err != nil {
			return domain.Internal(err, op, "failed to sum ledger entries")
		}
		acct := tx.Account()
		rec = domain.Reconciliation{
			AccountID:      accountID,
			Balance:        acct.Balance,
			OpeningBalance: acct.OpeningBalance,
			EntrySum:       sum,
			EntryCount:     count,
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, accountID)
	}

	metrics.Reconciled(rec.Balanced())
	if !rec.Balanced() {
		s.logger.Error("Ledger drift detected",
			"account_id", accountID,
			"balance", rec.Balance,
			"opening_balance", rec.OpeningBalance,
			"entry_sum", rec.EntrySum,
			"drift", rec.Drift(),
		)
	}
	return &rec, nil
}

// adminError logs rejected or failed admin operations and maps store errors.
func (s *creditService) adminError(err error, op string, accountID, adminID uuid.UUID) error {
	if domain.IsRejection(err) {
		s.logger.Info("Admin operation rejected",
			"op", op,
			"account_id", accountID,
			"admin_id", adminID,
			"error", err,
		)
		return err
	}
	return storeError(err, op, accountID)
}
