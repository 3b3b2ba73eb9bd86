package admin

import (
	"net/http"
	"time"

	"membership-app/database"
	paymentsapi "membership-app/internal/api/payments"
	"membership-app/internal/domain/members"
	paydom "membership-app/internal/domain/payments"

	"github.com/gin-gonic/gin"
)

type AdminMember struct {
	ID                   uint       `json:"id"`
	Name                 string     `json:"name"`
	Lastname             string     `json:"lastname"`
	Tel                  string     `json:"tel"`
	Email                string     `json:"email"`
	Role                 string     `json:"role"`
	IsVerified           bool       `json:"is_verified"`
	MembershipStatus     string     `json:"membership_status"`
	MembershipStartDate  *time.Time `json:"membership_start_date,omitempty"`
	MembershipExpiryDate *time.Time `json:"membership_expiry_date,omitempty"`
}

type AdminPayment struct {
	ID            uint    `json:"id"`
	Email         string  `json:"email"`
	Reference     string  `json:"reference"`
	PaymentType   string  `json:"payment_type"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	TransactionID *string `json:"transaction_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type AdminStats struct {
	TotalMembers    int     `json:"total_members"`
	ActiveMembers   int     `json:"active_members"`
	TotalRevenue    float64 `json:"total_revenue"`
	RecentRevenue   float64 `json:"recent_revenue"`
	PendingPayments int     `json:"pending_payments"`
}

func AdminDashboard(c *gin.Context) {
	var stats AdminStats

	var totalMembers, activeMembers, pendingPayments int64
	var totalRevenue, recentRevenue float64

	database.DB.Model(&members.Member{}).Count(&totalMembers)
	database.DB.Model(&members.Member{}).
		Where("membership_status = ? AND membership_expiry_date > ?", members.MembershipActive, time.Now()).
		Count(&activeMembers)
	database.DB.Model(&paydom.Payment{}).
		Where("status = ?", paydom.StatusCompleted).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalRevenue)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	database.DB.Model(&paydom.Payment{}).
		Where("status = ? AND payment_date >= ?", paydom.StatusCompleted, thirtyDaysAgo).
		Select("COALESCE(SUM(amount), 0)").Scan(&recentRevenue)

	database.DB.Model(&paydom.Payment{}).
		Where("status = ?", paydom.StatusPending).
		Count(&pendingPayments)

	stats.TotalMembers = int(totalMembers)
	stats.ActiveMembers = int(activeMembers)
	stats.TotalRevenue = totalRevenue
	stats.RecentRevenue = recentRevenue
	stats.PendingPayments = int(pendingPayments)

	c.JSON(http.StatusOK, stats)
}

func ListAllMembers(c *gin.Context) {
	var all []members.Member
	if err := database.DB.Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load members"})
		return
	}

	var out []AdminMember
	for _, m := range all {
		out = append(out, AdminMember{
			ID:                   m.ID,
			Name:                 m.Name,
			Lastname:             m.Lastname,
			Tel:                  m.Tel,
			Email:                m.Email,
			Role:                 m.Role,
			IsVerified:           m.IsVerified,
			MembershipStatus:     m.MembershipStatus,
			MembershipStartDate:  m.MembershipStartDate,
			MembershipExpiryDate: m.MembershipExpiryDate,
		})
	}

	c.JSON(http.StatusOK, out)
}

func ListAllPayments(c *gin.Context) {
	var all []paydom.Payment
	if err := database.DB.Preload("Member").Order("created_at DESC").Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	var out []AdminPayment
	for _, p := range all {
		out = append(out, AdminPayment{
			ID:            p.ID,
			Email:         p.Member.Email,
			Reference:     p.Reference,
			PaymentType:   p.PaymentType,
			Amount:        p.Amount,
			Status:        p.Status,
			PaymentMethod: p.PaymentMethod,
			TransactionID: p.TransactionID,
			CreatedAt:     p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, out)
}

func GetMemberDetails(c *gin.Context) {
	memberID := c.Param("id")

	var member members.Member
	if err := database.DB.First(&member, memberID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	var history []paydom.Payment
	if err := database.DB.Where("member_id = ?", memberID).Order("created_at DESC").Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member":   member,
		"payments": history,
	})
}

// RecheckPayment is the manual reconciliation channel: an admin forces a
// status re-derivation for any reference, without the owner restriction.
func RecheckPayment(c *gin.Context) {
	reference := c.Param("reference")
	if !paydom.ValidReference(reference) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment reference"})
		return
	}

	var p paydom.Payment
	if err := database.DB.Where("reference = ?", reference).First(&p).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	if paydom.IsTerminal(p.Status) {
		c.JSON(http.StatusOK, gin.H{"status": p.Status, "note": "already terminal"})
		return
	}

	status, ok := paymentsapi.RecheckAgainstProvider(c, &p)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "reference": p.Reference})
}
