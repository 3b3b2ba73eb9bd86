package payments

import (
	"net/http"

	paydom "membership-app/internal/domain/payments"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Reference string `json:"reference"`
}

// StatusCheck reports a payment's state, re-deriving it from the provider
// when the local row is still pending. Already-terminal payments are
// answered from the ledger without a provider round trip.
func StatusCheck(c *gin.Context) {
	var body statusRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid reference"})
		return
	}

	p, ok := findOwnedPayment(c, body.Reference)
	if !ok {
		return
	}

	if paydom.IsTerminal(p.Status) {
		c.JSON(http.StatusOK, statusBody(p, ""))
		return
	}

	result, _, ok := reconcileWithProvider(c, p)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, statusBody(p, result.Status))
}

// Verify has the same reconciliation contract as StatusCheck but is the
// endpoint the redirect-return poller drives; on completion the membership
// side effect has already run inside Apply.
func Verify(c *gin.Context) {
	var body statusRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid reference"})
		return
	}

	p, ok := findOwnedPayment(c, body.Reference)
	if !ok {
		return
	}

	status := p.Status
	if !paydom.IsTerminal(p.Status) {
		if _, s, ok := reconcileWithProvider(c, p); ok {
			status = s
		} else {
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"verified": status == paydom.StatusCompleted,
		"status":   status,
		"amount":   p.Amount,
	})
}

func statusBody(p *paydom.Payment, hubtelStatus string) gin.H {
	body := gin.H{
		"reference":      p.Reference,
		"status":         p.Status,
		"amount":         p.Amount,
		"payment_type":   p.PaymentType,
		"payment_method": p.PaymentMethod,
		"payment_date":   p.PaymentDate,
	}
	if hubtelStatus != "" {
		body["hubtel_status"] = hubtelStatus
	}
	if p.TransactionID != nil {
		body["transaction_id"] = *p.TransactionID
	}
	return body
}
