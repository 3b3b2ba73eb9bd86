package fees

import (
	"net/http"

	"membership-app/database"
	"membership-app/internal/domain/fees"

	"github.com/gin-gonic/gin"
)

func ListFeeTypes(c *gin.Context) {
	var all []fees.FeeType
	if err := database.DB.Where("active = ?", true).Order("code ASC").Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fee types"})
		return
	}
	c.JSON(http.StatusOK, all)
}

// UpsertFeeType lets an admin maintain the payment-type allow-list.
func UpsertFeeType(c *gin.Context) {
	var body struct {
		Code            string  `json:"code" binding:"required"`
		Name            string  `json:"name" binding:"required"`
		ReferencePrefix string  `json:"reference_prefix" binding:"required"`
		DefaultAmount   float64 `json:"default_amount"`
		Active          *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if body.Active != nil {
		active = *body.Active
	}

	var ft fees.FeeType
	err := database.DB.Where("code = ?", body.Code).First(&ft).Error
	if err == nil {
		updates := map[string]interface{}{
			"name":             body.Name,
			"reference_prefix": body.ReferencePrefix,
			"default_amount":   body.DefaultAmount,
			"active":           active,
		}
		if err := database.DB.Model(&ft).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update fee type"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Fee type updated"})
		return
	}

	ft = fees.FeeType{
		Code:            body.Code,
		Name:            body.Name,
		ReferencePrefix: body.ReferencePrefix,
		DefaultAmount:   body.DefaultAmount,
		Active:          active,
	}
	if err := database.DB.Create(&ft).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create fee type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fee type created"})
}
