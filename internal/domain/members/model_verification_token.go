package members

import "time"

type VerificationToken struct {
	ID        uint   `gorm:"primaryKey"`
	MemberID  uint   `gorm:"index"`
	Token     string `gorm:"uniqueIndex"`
	Type      string `gorm:"default:'email_verification'"` // or "password_reset"
	ExpiresAt time.Time
	CreatedAt time.Time
}
