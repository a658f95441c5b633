package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// User description. Fields aligned for the GC optimal scanning.
type User struct {
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	Balance    decimal.Decimal `db:"balance" json:"balance"`
	CashWallet decimal.Decimal `db:"cash_wallet" json:"cash_wallet"`
	Username   string          `db:"username" json:"username"`
	FirstName  string          `db:"first_name" json:"first_name"`
	ReferCode  string          `db:"refer_code" json:"refer_code"`
	ReferredBy string          `db:"referred_by" json:"referred_by,omitempty"`
	TelegramID int64           `db:"telegram_id" json:"telegram_id"`
	ID         int             `db:"id" json:"id"`
}

// Wallet selects which of the two user balances a mutation targets.
// Persistence code dispatches it through a fixed column mapping;
// it is never interpolated into a query from caller input.
type Wallet int

const (
	// Balance holds accrued task earnings. Not directly withdrawable.
	Balance Wallet = iota
	// CashWallet holds withdrawable funds. Funded only by transfer
	// from Balance.
	CashWallet
)

func (w Wallet) String() string {
	switch w {
	case Balance:
		return "balance"
	case CashWallet:
		return "cash_wallet"
	}
	return "unknown"
}
