package members

import (
	"time"
)

const (
	MembershipNone    = "none"
	MembershipActive  = "active"
	MembershipExpired = "expired"
)

type Member struct {
	ID           uint `gorm:"primaryKey"`
	Name         string
	Lastname     string
	Tel          string
	Email        string  `gorm:"not null;uniqueIndex:idx_members_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_members_google_sub"`
	Role         string
	IsVerified   bool

	MembershipStatus     string `gorm:"not null;default:'none'"`
	MembershipStartDate  *time.Time
	MembershipExpiryDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasActiveMembership checks the dates, not just the stored status, so an
// expired row that was never swept still reads as inactive.
func (m *Member) HasActiveMembership(now time.Time) bool {
	return m.MembershipStatus == MembershipActive &&
		m.MembershipExpiryDate != nil &&
		now.Before(*m.MembershipExpiryDate)
}
