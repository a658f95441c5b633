package withdrawal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the processing state of a withdrawal request.
// PENDING is the only non-terminal state.
type Status string

const (
	PENDING   Status = "pending"
	COMPLETED Status = "completed"
	CANCELLED Status = "cancelled"
)

// Terminal reports whether no further transition out of s is allowed.
func (s Status) Terminal() bool {
	return s == COMPLETED || s == CANCELLED
}

// Method is a supported mobile-money payout channel.
type Method string

const (
	BKASH  Method = "bkash"
	NAGAD  Method = "nagad"
	ROCKET Method = "rocket"
)

// Valid reports whether m names a supported payout method.
func (m Method) Valid() bool {
	switch m {
	case BKASH, NAGAD, ROCKET:
		return true
	}
	return false
}

// Withdrawal is a request to pay out funds from the cash wallet.
// Amount is the requested (and debited) figure; Charges and NetAmount
// are computed once at creation and never recalculated. IsFirst is a
// snapshot of the first-withdrawal check at creation time.
type Withdrawal struct {
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt   *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	NetAmount     decimal.Decimal `db:"net_amount" json:"net_amount"`
	Charges       decimal.Decimal `db:"charges" json:"charges"`
	DisplayID     string          `db:"display_id" json:"display_id"`
	AccountNumber string          `db:"account_number" json:"account_number"`
	AdminNote     string          `db:"admin_note" json:"admin_note,omitempty"`
	Method        Method          `db:"method" json:"method"`
	Status        Status          `db:"status" json:"status"`
	ID            int             `db:"id" json:"id"`
	UserID        int             `db:"user_id" json:"user_id"`
	IsFirst       bool            `db:"is_first_withdrawal" json:"is_first_withdrawal"`
}

// NewDisplayID builds a human-facing withdrawal reference
// like "WD-20260829-3F0A".
func NewDisplayID(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return fmt.Sprintf("WD-%s-%s", now.Format("20060102"), suffix)
}
