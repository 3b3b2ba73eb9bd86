package payments

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"membership-app/database"
	paydom "membership-app/internal/domain/payments"
	"membership-app/internal/infra/hubtel"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrLedgerWrite means the provider confirmed a state we could not record
// locally. The divergence is retriable: a later verify call runs the same
// transition again.
var ErrLedgerWrite = errors.New("provider-confirmed state could not be recorded locally")

// Apply converges a payment toward the provider's view of it and returns
// the resulting local status. It is the single serialization point for the
// three entry paths (webhook, poll, manual re-check): the status write is a
// compare-and-set guarded by the pending pre-state, so a lost race degrades
// to a no-op and only the winning caller dispatches side effects.
func Apply(db *gorm.DB, p *paydom.Payment, result *hubtel.StatusResult) (string, error) {
	if paydom.IsTerminal(p.Status) {
		return p.Status, nil
	}

	local := hubtel.NormalizeProviderStatus(result.Status)
	if local == paydom.StatusPending {
		// nothing to record; caller keeps polling
		return paydom.StatusPending, nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":         local,
		"callback_token": nil,
		"updated_at":     now,
	}
	if local == paydom.StatusCompleted {
		updates["payment_date"] = now
	}
	if result.PaymentMethod != "" {
		updates["payment_method"] = result.PaymentMethod
	}
	if result.TransactionID != "" {
		updates["transaction_id"] = result.TransactionID
	}

	res := db.Model(&paydom.Payment{}).
		Where("id = ? AND status = ?", p.ID, paydom.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return p.Status, fmt.Errorf("%w: %v", ErrLedgerWrite, res.Error)
	}

	if res.RowsAffected == 0 {
		// Another caller finished the transition first. Report whatever
		// is stored now; side effects already fired exactly once there.
		var current paydom.Payment
		if err := db.First(&current, p.ID).Error; err != nil {
			return p.Status, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
		}
		*p = current
		return current.Status, nil
	}

	p.Status = local
	p.CallbackToken = nil
	if result.PaymentMethod != "" {
		p.PaymentMethod = result.PaymentMethod
	}
	if result.TransactionID != "" {
		tx := result.TransactionID
		p.TransactionID = &tx
	}
	if local == paydom.StatusCompleted {
		p.PaymentDate = &now
		dispatchCompletionEffects(db, p, result)
	}
	return local, nil
}

// RecheckAgainstProvider re-derives one payment's status for callers that
// have already authorized access themselves (admin tooling). It writes the
// error response on failure and reports ok=false.
func RecheckAgainstProvider(c *gin.Context, p *paydom.Payment) (string, bool) {
	_, status, ok := reconcileWithProvider(c, p)
	return status, ok
}

// findOwnedPayment resolves a reference for the authenticated member and
// writes the error response itself when the lookup fails. The ownership
// check runs before any provider call is considered.
func findOwnedPayment(c *gin.Context, reference string) (*paydom.Payment, bool) {
	memberID := c.GetUint("user_id")
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not identified"})
		return nil, false
	}

	if !paydom.ValidReference(reference) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment reference"})
		return nil, false
	}

	var p paydom.Payment
	if err := database.DB.Where("reference = ?", reference).First(&p).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return nil, false
	}

	if p.MemberID != memberID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Payment belongs to another member"})
		return nil, false
	}

	return &p, true
}

// reconcileWithProvider runs the query-status + apply pipeline for a
// payment that is not yet terminal. It writes the error response itself on
// failure.
func reconcileWithProvider(c *gin.Context, p *paydom.Payment) (*hubtel.StatusResult, string, bool) {
	gateway, err := hubtel.NewFromEnv()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment provider not configured"})
		return nil, "", false
	}

	result, err := gateway.QueryStatus(c.Request.Context(), p.Reference)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not reach payment provider", "details": err.Error()})
		return nil, "", false
	}

	status, err := Apply(database.DB, p, result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Provider reports the payment state but it could not be recorded; please retry verification",
		})
		return nil, "", false
	}
	return result, status, true
}
