package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// SubscriptionTier enumerates billing tiers.
type SubscriptionTier string

const (
	TierFree     SubscriptionTier = "free"
	TierBasic    SubscriptionTier = "basic"
	TierPro      SubscriptionTier = "pro"
	TierProPlus  SubscriptionTier = "pro_plus"
	TierUltimate SubscriptionTier = "ultimate"
)

// UnlimitedTokens marks a balance that is never decremented.
const UnlimitedTokens = -1

var tierAllowance = map[SubscriptionTier]int{
	TierFree:     100,
	TierBasic:    300,
	TierPro:      1000,
	TierProPlus:  3000,
	TierUltimate: UnlimitedTokens,
}

// ParseTier validates a tier name.
func ParseTier(s string) (SubscriptionTier, error) {
	t := SubscriptionTier(s)
	if _, ok := tierAllowance[t]; !ok {
		return "", ErrUnsupportedTier
	}
	return t, nil
}

// Allowance returns the token allocation granted by the tier.
func (t SubscriptionTier) Allowance() int {
	return tierAllowance[t]
}

// Unlimited reports whether balances on this tier are never checked.
func (t SubscriptionTier) Unlimited() bool {
	return t.Allowance() == UnlimitedTokens
}

// User represents an authenticated account within the platform.
type User struct {
	ID              string
	GoogleSub       string
	Email           string
	Name            string
	Picture         string
	Locale          string
	Role            UserRole
	Tier            SubscriptionTier
	AvailableTokens int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// TransactionType classifies token ledger entries.
type TransactionType string

const (
	TxConsumption TransactionType = "consumption"
	TxRefund      TransactionType = "refund"
	TxTopUp       TransactionType = "topup"
	TxTierChange  TransactionType = "tier_change"
)

// TokenTransaction is an immutable ledger row.
type TokenTransaction struct {
	ID            string
	UserID        string
	JobID         *string
	Type          TransactionType
	Amount        int
	BalanceBefore int
	BalanceAfter  int
	Description   string
	CreatedAt     time.Time
}
