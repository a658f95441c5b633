package wallet

import (
	"fmt"

	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/shopspring/decimal"
)

// Withdrawal and transfer rules. Amounts are in BDT.
var (
	// ServiceChargeRate is deducted from every withdrawal.
	ServiceChargeRate = decimal.NewFromFloat(0.10)
	// FirstWithdrawalFee is added on top of the service charge for a
	// user's first-ever withdrawal.
	FirstWithdrawalFee = decimal.NewFromInt(10)
	// MinWithdrawal is the smallest amount a user may request.
	MinWithdrawal = decimal.NewFromInt(100)
	// WithdrawalStep: requested amounts must be multiples of this.
	WithdrawalStep = decimal.NewFromInt(100)
	// MinTransfer is the smallest balance→cash wallet transfer.
	MinTransfer = decimal.NewFromInt(10)
)

// FeeBreakdown itemizes the charges deducted from a requested
// withdrawal amount.
type FeeBreakdown struct {
	ServiceCharge decimal.Decimal `json:"service_charge"`
	FixedFee      decimal.Decimal `json:"fixed_fee"`
	TotalCharges  decimal.Decimal `json:"total_charges"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

// ComputeFee calculates the charges and net payout for a withdrawal of
// amount. Pure and deterministic: both the quote endpoint and the
// persisted withdrawal record go through this one function, so the
// quoted and the charged figures never diverge.
//
// Minimum-amount and multiple-of-100 rules are request validation and
// belong to the caller; non-positive amounts are rejected here.
func ComputeFee(amount decimal.Decimal, isFirst bool) (FeeBreakdown, error) {
	if !amount.IsPositive() {
		return FeeBreakdown{}, fmt.Errorf("%w: must be positive, got %s", errs.ErrInvalidAmount, amount)
	}

	serviceCharge := amount.Mul(ServiceChargeRate)

	fixedFee := decimal.Zero
	if isFirst {
		fixedFee = FirstWithdrawalFee
	}

	totalCharges := serviceCharge.Add(fixedFee)

	return FeeBreakdown{
		ServiceCharge: serviceCharge,
		FixedFee:      fixedFee,
		TotalCharges:  totalCharges,
		NetAmount:     amount.Sub(totalCharges),
	}, nil
}
