package payments

import (
	"net/http"

	"membership-app/database"
	paydom "membership-app/internal/domain/payments"

	"github.com/gin-gonic/gin"
)

func GetPaymentHistory(c *gin.Context) {
	memberID := c.GetUint("user_id")
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var history []paydom.Payment
	if err := database.DB.
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, history)
}
