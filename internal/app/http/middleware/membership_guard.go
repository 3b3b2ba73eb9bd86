package middleware

import (
	"net/http"
	"time"

	"membership-app/database"
	"membership-app/internal/domain/members"

	"github.com/gin-gonic/gin"
)

func RequireActiveMembership() gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := c.GetUint("user_id")

		var member members.Member
		if err := database.DB.Where("id = ?", memberID).First(&member).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Membership not found",
			})
			return
		}

		if !member.HasActiveMembership(time.Now()) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Your membership is inactive or has expired",
			})
			return
		}

		c.Next()
	}
}
