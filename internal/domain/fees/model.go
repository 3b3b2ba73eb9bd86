package fees

import "time"

// FeeType is the allow-list of payment types a member may check out
// against (registration_fee, membership_dues, ...). ReferencePrefix feeds
// the payment reference generator.
type FeeType struct {
	ID              uint   `gorm:"primaryKey"`
	Code            string `gorm:"not null;uniqueIndex:idx_fee_types_code"`
	Name            string
	ReferencePrefix string `gorm:"not null"`
	DefaultAmount   float64
	Active          bool `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
