// Package domain contains core business types and interfaces.
//
// This file defines the monthly AI-generation quota state and the calendar
// arithmetic used to reset it.
package domain

import "time"

// QuotaStatus represents current AI usage against the tier's monthly cap.
type QuotaStatus struct {
	Allowed      bool
	Unlimited    bool
	Limit        int // Zero when Unlimited
	CurrentUsage int
	Reason       RejectReason // Set when Allowed is false
	Reset        bool         // The counter was rolled into a new month by this check
}

// Remaining returns the number of AI actions left this month, or -1 when unlimited.
func (q *QuotaStatus) Remaining() int {
	if q.Unlimited {
		return -1
	}
	if q.CurrentUsage >= q.Limit {
		return 0
	}
	return q.Limit - q.CurrentUsage
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NeedsQuotaReset reports whether a counter anchored at anchor must be reset
// before it is evaluated at now: the anchor is missing or lies in a strictly
// earlier calendar month.
func NeedsQuotaReset(anchor *time.Time, now time.Time) bool {
	if anchor == nil {
		return true
	}
	return MonthStart(*anchor).Before(MonthStart(now))
}

// EvaluateQuota applies the tier cap to a post-reset usage count.
func EvaluateQuota(tier TierDefinition, usage int) QuotaStatus {
	if tier.AIUnlimited() {
		return QuotaStatus{Allowed: true, Unlimited: true, CurrentUsage: usage}
	}
	limit := *tier.MonthlyAICap
	if limit == 0 {
		return QuotaStatus{Allowed: false, CurrentUsage: usage, Reason: RejectFeatureNotIncluded}
	}
	status := QuotaStatus{Limit: limit, CurrentUsage: usage, Allowed: usage < limit}
	if !status.Allowed {
		status.Reason = RejectQuotaExceeded
	}
	return status
}
