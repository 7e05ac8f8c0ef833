package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PensionProviderStatus marks whether a provider accepts transfers
type PensionProviderStatus string

const (
	PensionProviderStatusActive   PensionProviderStatus = "active"
	PensionProviderStatusInactive PensionProviderStatus = "inactive"
)

// PensionProvider is an external pension scheme reachable by paybill
type PensionProvider struct {
	ID        int64                 `db:"id" json:"id"`
	Name      string                `db:"name" json:"name"`
	Paybill   string                `db:"paybill" json:"paybill"`
	Status    PensionProviderStatus `db:"status" json:"status"`
	CreatedAt time.Time             `db:"created_at" json:"created_at"`
}

// IsActive reports whether transfers may be sent to the provider
func (p *PensionProvider) IsActive() bool {
	return p != nil && p.Status == PensionProviderStatusActive
}

// PensionAccount is a member's pension opt-in
type PensionAccount struct {
	ID                     int64           `db:"id" json:"id"`
	MemberID               int64           `db:"member_id" json:"member_id"`
	OptedIn                bool            `db:"opted_in" json:"opted_in"`
	ContributionPercentage decimal.Decimal `db:"contribution_percentage" json:"contribution_percentage"`
	TotalPensionAmount     decimal.Decimal `db:"total_pension_amount" json:"total_pension_amount"`
	ProviderID             *int64          `db:"provider_id" json:"provider_id,omitempty"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updated_at"`
}
