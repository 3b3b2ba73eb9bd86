package payments

import (
	"membership-app/internal/domain/members"
	"time"
)

// Payment statuses. Completed and failed are terminal: once a row reaches
// either, its status is never written again.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Payment is the ledger row for one checkout attempt. Reference, MemberID
// and Amount are immutable after creation; Notes is an append-only audit
// trail; CallbackToken is a one-time secret embedded in the provider
// callback URL and cleared on the terminal transition.
type Payment struct {
	ID            uint           `gorm:"primaryKey"`
	MemberID      uint           `gorm:"index;not null"`
	Member        members.Member `json:"-"`
	Reference     string         `gorm:"uniqueIndex;not null"`
	Amount        float64        `gorm:"not null"`
	PaymentType   string         `gorm:"not null"`
	PaymentMethod string
	Status        string `gorm:"not null;default:'pending'"`
	TransactionID *string
	CallbackToken *string `json:"-"`
	Notes         string
	PaymentDate   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
