// internal/domain/loyalty/entity.go
package loyalty

import "time"

// Reason says why points moved
type Reason string

const (
	ReasonOrder    Reason = "order"
	ReasonReferral Reason = "referral"
)

// Account is a user's running points balance
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	Lifetime  int64     `gorm:"not null;default:0" json:"lifetime"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is one credit to an account. Each order credits at most once per reason.
type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	OrderID   uint      `gorm:"not null;uniqueIndex:idx_loyalty_order_reason" json:"order_id"`
	Reason    Reason    `gorm:"not null;size:20;uniqueIndex:idx_loyalty_order_reason" json:"reason"`
	Points    int64     `gorm:"not null" json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

func (Account) TableName() string     { return "loyalty_accounts" }
func (Transaction) TableName() string { return "loyalty_transactions" }

// AwardResult summarizes the points a completed order produced
type AwardResult struct {
	Points        int64 `json:"points"`
	ReferrerID    *uint `json:"referrer_id,omitempty"`
	ReferralBonus int64 `json:"referral_bonus"`
}
