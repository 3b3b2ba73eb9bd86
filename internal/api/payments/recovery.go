package payments

import (
	"context"
	"fmt"
	"time"

	"membership-app/database"
	paydom "membership-app/internal/domain/payments"
	"membership-app/internal/infra/hubtel"
	"membership-app/internal/poller"
)

// RecoverStalePending drives payments that have sat in pending for longer
// than minAge through a bounded verification loop. It covers the window
// where the member closed the tab before the redirect return and the
// provider callback never arrived. Meant to run once at startup in its
// own goroutine; anything still unresolved afterwards is left for the
// webhook or a manual re-check.
func RecoverStalePending(ctx context.Context, minAge time.Duration) {
	gateway, err := hubtel.NewFromEnv()
	if err != nil {
		fmt.Println("⚠️ Pending payment recovery skipped:", err)
		return
	}

	cutoff := time.Now().Add(-minAge)
	var stale []paydom.Payment
	if err := database.DB.
		Where("status = ? AND created_at < ?", paydom.StatusPending, cutoff).
		Order("created_at ASC").
		Limit(100).
		Find(&stale).Error; err != nil {
		fmt.Println("⚠️ Could not load stale pending payments:", err)
		return
	}
	if len(stale) == 0 {
		return
	}
	fmt.Printf("🔁 Recovering %d stale pending payment(s)\n", len(stale))

	verify := func(ctx context.Context, reference string) (string, error) {
		var p paydom.Payment
		if err := database.DB.Where("reference = ?", reference).First(&p).Error; err != nil {
			return "", err
		}
		if paydom.IsTerminal(p.Status) {
			return p.Status, nil
		}
		result, err := gateway.QueryStatus(ctx, p.Reference)
		if err != nil {
			return "", err
		}
		return Apply(database.DB, &p, result)
	}

	w := poller.New(poller.Config{Interval: 30 * time.Second, MaxAttempts: 4}, verify)
	for _, p := range stale {
		status, err := w.Watch(ctx, p.Reference)
		if err == nil && paydom.IsTerminal(status) {
			fmt.Println("✅ Recovered payment", p.Reference, "→", status)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
