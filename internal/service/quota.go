// Package service contains the business logic layer.
//
// This file implements the quota service: the per-account monthly counter
// of AI generations, lazily reset on the first check of a new month.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/metrics"
	"github.com/DukeRupert/credits/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService defines operations on the monthly AI-generation quota.
type QuotaService interface {
	// Check resets the counter if it belongs to an earlier month, then
	// reports whether one more AI action is allowed. It never increments.
	Check(ctx context.Context, accountID uuid.UUID) (*domain.QuotaStatus, error)

	// Increment records one AI action against a bounded cap. Unlimited tiers
	// are not counted; tiers without AI access are rejected.
	Increment(ctx context.Context, accountID uuid.UUID) (*domain.QuotaStatus, error)

	// Usage reports the effective usage without writing anything.
	Usage(ctx context.Context, accountID uuid.UUID) (*domain.QuotaStatus, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	store  store.Store
	tiers  TierCatalog
	logger *slog.Logger
	now    func() time.Time
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(st store.Store, tiers TierCatalog, logger *slog.Logger, opts ...Option) QuotaService {
	return newQuotaService(st, tiers, logger, newOptions(opts))
}

func newQuotaService(st store.Store, tiers TierCatalog, logger *slog.Logger, o options) *quotaService {
	return &quotaService{
		store:  st,
		tiers:  tiers,
		logger: logger,
		now:    o.now,
	}
}

// Check resets a stale counter and evaluates the cap.
func (s *quotaService) Check(ctx context.Context, accountID uuid.UUID) (*domain.QuotaStatus, error) {
	const op = "quota.check"

	var status domain.QuotaStatus
	err := s.store.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
		tier, err := s.tiers.Tier(ctx, tx.Account().Tier)
		if err != nil {
			return domain.Internal(err, op, "failed to resolve tier")
		}
		status = s.checkTx(ctx, tx, tier)
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, accountID)
	}
	return &status, nil
}

// Increment counts one AI action.
func (s *quotaService) Increment(ctx context.Context, accountID uuid.UUID) (*domain.QuotaStatus, error) {
	const op = "quota.increment"

	var status domain.QuotaStatus
	err := s.store.WithAccount(ctx, accountID, func(tx store.AccountTx) error {
		acct := tx.Account()
		tier, err := s.tiers.Tier(ctx, acct.Tier)
		if err != nil {
			return domain.Internal(err, op, "failed to resolve tier")
		}
		if tier.AIForbidden() {
			return domain.FeatureNotIncluded(op, acct.Tier)
		}

		status = s.checkTx(ctx, tx, tier)
		if status.Unlimited {
			return nil
		}
		n, err := tx.IncrementUsage(ctx)
		if err != nil {
			return domain.Internal(err, op, "failed to increment usage")
		}
		status = domain.EvaluateQuota(tier, n)
		return nil
	})
	if err != nil {
		return nil, storeError(err, op, accountID)
	}
	return &status, nil
}

// Usage computes the post-reset usage without persisting the reset.
func (s *quotaService) Usage(ctx context.Context, accountID uuid.UUID) (*domain.QuotaStatus, error) {
	const op = "quota.usage"

	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, storeError(err, op, accountID)
	}
	tier, err := s.tiers.Tier(ctx, acct.Tier)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve tier")
	}

	usage := acct.MonthlyUsageCount
	if domain.NeedsQuotaReset(acct.UsageCounterAnchor, s.now()) {
		usage = 0
	}
	status := domain.EvaluateQuota(tier, usage)
	return &status, nil
}

// checkTx applies the lazy monthly reset and evaluates the cap inside an
// account transaction.
//
// A failed reset is logged and the stored (stale) counter is evaluated
// instead. That can only reject a request that would have been allowed,
// never the reverse.
func (s *quotaService) checkTx(ctx context.Context, tx store.AccountTx, tier domain.TierDefinition) domain.QuotaStatus {
	if tier.AIUnlimited() || tier.AIForbidden() {
		return domain.EvaluateQuota(tier, tx.Account().MonthlyUsageCount)
	}

	acct := tx.Account()
	usage := acct.MonthlyUsageCount
	reset := false

	now := s.now()
	if domain.NeedsQuotaReset(acct.UsageCounterAnchor, now) {
		if err := tx.ResetUsage(ctx, domain.MonthStart(now)); err != nil {
			metrics.QuotaResetFailed()
			s.logger.Warn("quota reset failed, evaluating stored counter",
				"account_id", acct.ID,
				"usage", usage,
				"error", err,
			)
		} else {
			metrics.QuotaReset()
			usage = 0
			reset = true
		}
	}

	status := domain.EvaluateQuota(tier, usage)
	status.Reset = reset
	if !status.Allowed {
		s.logger.Info("AI quota exceeded",
			"account_id", acct.ID,
			"tier", tier.ID,
			"used", usage,
			"limit", status.Limit,
		)
	}
	return status
}
