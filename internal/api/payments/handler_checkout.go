package payments

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"membership-app/config"
	"membership-app/database"
	"membership-app/internal/domain/fees"
	"membership-app/internal/domain/members"
	paydom "membership-app/internal/domain/payments"
	"membership-app/internal/infra/hubtel"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type payerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// InitiateCheckout validates the request, registers the checkout with the
// provider, and only then creates the pending ledger row — a refused
// initiation must not leave an orphaned pending payment behind.
func InitiateCheckout(c *gin.Context) {
	var body struct {
		Amount      float64   `json:"amount"`
		PaymentType string    `json:"payment_type"`
		Reference   string    `json:"reference"`
		PayerInfo   payerInfo `json:"payer_info"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PaymentType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid checkout body"})
		return
	}

	memberID := c.GetUint("user_id")
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not identified"})
		return
	}

	if body.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	}
	if body.Amount > config.PAYMENT_MAX_AMOUNT {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Amount exceeds the maximum of %.2f", config.PAYMENT_MAX_AMOUNT)})
		return
	}

	// allow-list payment type
	var feeType fees.FeeType
	if err := database.DB.Where("code = ? AND active = ?", body.PaymentType, true).First(&feeType).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment_type"})
		return
	}

	var member members.Member
	if err := database.DB.Where("id = ?", memberID).First(&member).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not found"})
		return
	}
	if !member.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return
	}

	reference := body.Reference
	if reference == "" {
		reference = paydom.NewReference(feeType.ReferencePrefix)
	} else {
		if !paydom.ValidReference(reference) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment reference"})
			return
		}
		var existing paydom.Payment
		if err := database.DB.Where("reference = ?", reference).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Reference already in use"})
			return
		}
	}

	gateway, err := hubtel.NewFromEnv()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment provider not configured"})
		return
	}

	callbackToken := uuid.NewString()
	callbackURL := ""
	if config.PAYMENT_CALLBACK_URL != "" {
		callbackURL = config.PAYMENT_CALLBACK_URL +
			"?reference=" + url.QueryEscape(reference) +
			"&token=" + url.QueryEscape(callbackToken)
	}

	payerName := body.PayerInfo.Name
	if payerName == "" {
		payerName = member.Name + " " + member.Lastname
	}
	payerEmail := body.PayerInfo.Email
	if payerEmail == "" {
		payerEmail = member.Email
	}

	checkout, err := gateway.InitiateCheckout(c.Request.Context(), hubtel.CheckoutRequest{
		Amount:          body.Amount,
		Description:     feeType.Name,
		ClientReference: reference,
		ReturnURL:       config.APP_URL + "/payments/return?reference=" + url.QueryEscape(reference),
		CancelURL:       config.APP_URL + "/payments?canceled=1",
		CallbackURL:     callbackURL,
		PayerName:       payerName,
		PayerPhone:      body.PayerInfo.Phone,
		PayerEmail:      payerEmail,
	})
	if err != nil {
		var rejected *hubtel.RejectedError
		switch {
		case errors.Is(err, hubtel.ErrNotConfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment provider not configured"})
		case errors.As(err, &rejected):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Checkout refused by payment provider", "details": rejected.Message})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not start checkout", "details": err.Error()})
		}
		return
	}

	payment := paydom.Payment{
		MemberID:      memberID,
		Reference:     reference,
		Amount:        body.Amount,
		PaymentType:   feeType.Code,
		Status:        paydom.StatusPending,
		CallbackToken: &callbackToken,
		Notes:         time.Now().Format(time.RFC3339) + " checkout initiated (checkout_id=" + checkout.CheckoutID + ")",
	}
	if err := database.DB.Create(&payment).Error; err != nil {
		// The provider already holds this checkout; hand the reference
		// back so a later verify can reconcile it.
		fmt.Println("❌ Ledger insert failed after checkout initiation:", reference, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Checkout was created but could not be recorded; retry verification with this reference",
			"reference": reference,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout_url": checkout.CheckoutURL,
		"reference":    reference,
	})
}
