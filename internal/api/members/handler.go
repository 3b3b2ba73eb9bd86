package members

import (
	"net/http"
	"time"

	"membership-app/database"
	"membership-app/internal/domain/members"

	"github.com/gin-gonic/gin"
)

type ProfileDTO struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Lastname   string  `json:"lastname"`
	Tel        *string `json:"tel,omitempty"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	IsVerified bool    `json:"is_verified"`
}

type MembershipDTO struct {
	Status     string     `json:"status"`
	Active     bool       `json:"active"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

type MeResponse struct {
	Member     ProfileDTO    `json:"member"`
	Membership MembershipDTO `json:"membership"`
}

func GetCurrentMember(c *gin.Context) {
	memberID := c.GetUint("user_id")
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var member members.Member
	if err := database.DB.First(&member, memberID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	now := time.Now()
	status := member.MembershipStatus
	if status == members.MembershipActive && !member.HasActiveMembership(now) {
		status = members.MembershipExpired
	}

	resp := MeResponse{
		Member: ProfileDTO{
			ID:         member.ID,
			Name:       member.Name,
			Lastname:   member.Lastname,
			Tel:        stringPtrIfNotEmpty(member.Tel),
			Email:      member.Email,
			Role:       member.Role,
			IsVerified: member.IsVerified,
		},
		Membership: MembershipDTO{
			Status:     status,
			Active:     member.HasActiveMembership(now),
			StartDate:  member.MembershipStartDate,
			ExpiryDate: member.MembershipExpiryDate,
		},
	}

	c.JSON(http.StatusOK, resp)
}

func UpdateProfile(c *gin.Context) {
	memberID := c.GetUint("user_id")
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		Name     string `json:"name"`
		Lastname string `json:"lastname"`
		Tel      string `json:"tel"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	updates := map[string]interface{}{}
	if body.Name != "" {
		updates["name"] = body.Name
	}
	if body.Lastname != "" {
		updates["lastname"] = body.Lastname
	}
	if body.Tel != "" {
		updates["tel"] = body.Tel
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(&members.Member{}).Where("id = ?", memberID).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// ListDirectory is the members-only directory, gated by the active
// membership middleware in the route table.
func ListDirectory(c *gin.Context) {
	var all []members.Member
	if err := database.DB.
		Where("membership_status = ?", members.MembershipActive).
		Order("lastname ASC").
		Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load directory"})
		return
	}

	type entry struct {
		Name     string `json:"name"`
		Lastname string `json:"lastname"`
	}
	out := make([]entry, 0, len(all))
	for _, m := range all {
		out = append(out, entry{Name: m.Name, Lastname: m.Lastname})
	}

	c.JSON(http.StatusOK, out)
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
