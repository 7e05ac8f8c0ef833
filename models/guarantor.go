package models

import (
	"time"
)

// GuarantorStatus represents a guarantor's response to a loan request
type GuarantorStatus string

const (
	GuarantorStatusPending  GuarantorStatus = "Pending"
	GuarantorStatusApproved GuarantorStatus = "Approved"
	GuarantorStatusRejected GuarantorStatus = "Rejected"
	GuarantorStatusExpired  GuarantorStatus = "Expired"
)

// RequiredGuarantors is the number of active guarantors every loan needs
const RequiredGuarantors = 2

// GuarantorAction is a guarantor's answer to a request
type GuarantorAction string

const (
	GuarantorActionApprove GuarantorAction = "approve"
	GuarantorActionReject  GuarantorAction = "reject"
)

// Guarantor is one guarantor slot on a loan
type Guarantor struct {
	ID          int64           `db:"id" json:"id"`
	LoanID      int64           `db:"loan_id" json:"loan_id"`
	MemberID    int64           `db:"member_id" json:"member_id"`
	Status      GuarantorStatus `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	RespondedAt *time.Time      `db:"responded_at" json:"responded_at,omitempty"`
	ReplacedAt  *time.Time      `db:"replaced_at" json:"replaced_at,omitempty"`
}

// IsPending reports whether the guarantor can still respond
func (g *Guarantor) IsPending() bool {
	return g.Status == GuarantorStatusPending && g.ReplacedAt == nil
}

// NeedsReplacement reports whether the slot is dead and must be filled by someone else
func (g *Guarantor) NeedsReplacement() bool {
	return g.ReplacedAt == nil &&
		(g.Status == GuarantorStatusRejected || g.Status == GuarantorStatusExpired)
}
