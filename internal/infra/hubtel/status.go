package hubtel

import (
	"strings"

	"membership-app/internal/domain/payments"
)

// NormalizeProviderStatus maps the provider's transaction status onto the
// local payment lattice. Anything ambiguous stays pending; a payment is
// never failed on output we do not recognise.
//
// Refunded maps to failed, which folds "never paid" and "paid then
// reversed" into one terminal state; distinguishing them would need a
// dedicated ledger state and reversal side effects.
func NormalizeProviderStatus(s string) string {
	switch strings.TrimSpace(s) {
	case StatusPaid:
		return payments.StatusCompleted
	case StatusUnpaid:
		return payments.StatusPending
	case StatusRefunded:
		return payments.StatusFailed
	default:
		return payments.StatusPending
	}
}
