package payments

import (
	"context"
	"fmt"
	"time"

	"membership-app/internal/domain/members"
	paydom "membership-app/internal/domain/payments"
	"membership-app/internal/infra/cache"
	"membership-app/internal/infra/hubtel"

	"gorm.io/gorm"
)

// receiptSender is swappable in tests.
var receiptSender = SendReceiptEmail

// dispatchCompletionEffects runs the durable consequences of a completed
// payment. It is only reachable from the Apply CAS winner, which is what
// makes each effect at-most-once per payment. Membership activation is the
// primary contract; the receipt email and cache signal are best-effort and
// must never fail the completion.
func dispatchCompletionEffects(db *gorm.DB, p *paydom.Payment, result *hubtel.StatusResult) {
	var member members.Member
	if err := db.First(&member, p.MemberID).Error; err != nil {
		fmt.Println("❌ Completed payment for missing member:", p.Reference, err)
		return
	}

	if err := activateMembership(db, member.ID); err != nil {
		fmt.Println("❌ Membership activation failed for", p.Reference, ":", err)
	}

	date := time.Now()
	if p.PaymentDate != nil {
		date = *p.PaymentDate
	}
	go func(email, name, reference string, amount float64) {
		if err := receiptSender(email, name, reference, amount, date); err != nil {
			fmt.Println("📭 Receipt email failed (payment unaffected):", reference, err)
		}
	}(member.Email, member.Name, p.Reference, p.Amount)

	cache.InvalidateMemberViews(context.Background(), member.ID)
}

func activateMembership(db *gorm.DB, memberID uint) error {
	now := time.Now()
	expiry := now.AddDate(1, 0, 0)
	return db.Model(&members.Member{}).
		Where("id = ?", memberID).
		Updates(map[string]interface{}{
			"membership_status":      members.MembershipActive,
			"membership_start_date":  now,
			"membership_expiry_date": expiry,
		}).Error
}
