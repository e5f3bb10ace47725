package metrics

import "strings"

// SpendCompleted records a spend that went through.
func SpendCompleted(reason string) {
	SpendAttemptsTotal.WithLabelValues(reason, "completed").Inc()
}

// SpendRejected records a spend rejected by a gate. The outcome label is the
// lower-cased rejection reason.
func SpendRejected(reason, rejectReason string) {
	SpendAttemptsTotal.WithLabelValues(reason, strings.ToLower(rejectReason)).Inc()
}

// SpendFailed records a spend that aborted on an infrastructure error.
func SpendFailed(reason string) {
	SpendAttemptsTotal.WithLabelValues(reason, "error").Inc()
}

// EntryWritten records a committed ledger entry of the given signed amount.
func EntryWritten(reason string, amount int64) {
	LedgerEntriesTotal.WithLabelValues(reason).Inc()
	switch {
	case amount > 0:
		CreditsGrantedTotal.WithLabelValues(reason).Add(float64(amount))
	case amount < 0:
		CreditsDebitedTotal.WithLabelValues(reason).Add(float64(-amount))
	}
}

// QuotaReset records a lazy monthly counter reset.
func QuotaReset() {
	QuotaResetsTotal.Inc()
}

// QuotaResetFailed records a reset that could not be persisted.
func QuotaResetFailed() {
	QuotaResetFailuresTotal.Inc()
}

// StoreRetried records a retried account transaction.
func StoreRetried(op string) {
	StoreRetriesTotal.WithLabelValues(op).Inc()
}

// Reconciled records the outcome of a balance reconciliation.
func Reconciled(balanced bool) {
	if balanced {
		ReconcileRunsTotal.WithLabelValues("balanced").Inc()
		return
	}
	ReconcileRunsTotal.WithLabelValues("drift").Inc()
}

// CatalogReloaded records a catalog reload attempt.
func CatalogReloaded(err error) {
	if err != nil {
		CatalogReloadsTotal.WithLabelValues("failed").Inc()
		return
	}
	CatalogReloadsTotal.WithLabelValues("ok").Inc()
}
