package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digitalvishon/taskpay/internal/config"
	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/user"
	"github.com/digitalvishon/taskpay/internal/models/withdrawal"
	"github.com/digitalvishon/taskpay/pkg/logger"
	"github.com/shopspring/decimal"
)

// TxManager runs a function within a single database transaction.
// Satisfied by trm's *manager.Manager.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier delivers best-effort messages to the admin chat. Failures
// are logged and never surface as an operation result.
type Notifier interface {
	WithdrawalRequested(ctx context.Context, u *user.User, w *withdrawal.Withdrawal) error
}

// Service owns every mutation of the two user balances except the
// task-review credit (see the review package). All writes go through
// single atomic statements inside one transaction.
type Service struct {
	repo     Repository
	trm      TxManager
	notifier Notifier
	logger   logger.Logger
	config   *config.Config
}

func NewService(repo Repository, trm TxManager, notifier Notifier, logger logger.Logger, config *config.Config) (*Service, error) {
	if config == nil {
		return nil, errors.New("nil dependency: config")
	}
	if trm == nil {
		return nil, errors.New("nil dependency: transaction manager")
	}
	if notifier == nil {
		return nil, errors.New("nil dependency: notifier")
	}
	return &Service{repo: repo, trm: trm, notifier: notifier, logger: logger, config: config}, nil
}

// Quote describes the payout a user would receive for a requested
// amount, with the first-withdrawal fee applied when no prior
// withdrawal of any status exists.
type Quote struct {
	Amount  decimal.Decimal `json:"amount"`
	Fee     FeeBreakdown    `json:"charges"`
	IsFirst bool            `json:"is_first_withdrawal"`
}

// QuoteWithdrawal computes the fee breakdown for a prospective
// withdrawal without mutating any state.
func (s *Service) QuoteWithdrawal(ctx context.Context, telegramID int64, amount decimal.Decimal) (*Quote, error) {
	u, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}

	count, err := s.repo.CountWithdrawals(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("count withdrawals: %w", err)
	}

	isFirst := count == 0

	fee, err := ComputeFee(amount, isFirst)
	if err != nil {
		return nil, err
	}

	return &Quote{Amount: amount, Fee: fee, IsFirst: isFirst}, nil
}

// CreateWithdrawal validates the request, snapshots the
// first-withdrawal flag, inserts the pending withdrawal and debits the
// cash wallet, all in one transaction. The user row is locked first so
// two concurrent requests cannot both observe a zero withdrawal count.
func (s *Service) CreateWithdrawal(ctx context.Context, telegramID int64, amount decimal.Decimal, method withdrawal.Method, accountNumber string) (*withdrawal.Withdrawal, error) {
	if amount.LessThan(MinWithdrawal) {
		return nil, fmt.Errorf("%w: minimum withdrawal is %s", errs.ErrBelowMinimum, MinWithdrawal)
	}
	if !amount.Mod(WithdrawalStep).IsZero() {
		return nil, fmt.Errorf("%w: got %s", errs.ErrWrongMultiple, amount)
	}

	u, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}

	w := &withdrawal.Withdrawal{
		UserID:        u.ID,
		Amount:        amount,
		Method:        method,
		AccountNumber: accountNumber,
		Status:        withdrawal.PENDING,
	}

	// A unique violation on the display id leaves the transaction
	// aborted, so the retry must rerun the whole transaction with a
	// fresh id. Two consecutive collisions surface the conflict.
	for attempt := 0; ; attempt++ {
		w.DisplayID = withdrawal.NewDisplayID(time.Now())

		err = s.trm.Do(ctx, func(ctx context.Context) error {
			// Serialization point for the first-withdrawal snapshot and
			// the insert+debit pair.
			locked, err := s.repo.GetUserForUpdate(ctx, u.ID)
			if err != nil {
				return err
			}

			if locked.CashWallet.LessThan(amount) {
				return fmt.Errorf("%w: cash wallet %s, requested %s",
					errs.ErrNotEnoughFunds, locked.CashWallet, amount)
			}

			count, err := s.repo.CountWithdrawals(ctx, u.ID)
			if err != nil {
				return err
			}
			w.IsFirst = count == 0

			fee, err := ComputeFee(amount, w.IsFirst)
			if err != nil {
				return err
			}
			w.Charges = fee.TotalCharges
			w.NetAmount = fee.NetAmount

			if err = s.repo.CreateWithdrawal(ctx, w); err != nil {
				return err
			}

			// The RETURNING check inside makes the debit the authoritative
			// non-negativity guard; failure rolls back the insert too.
			return s.repo.DebitCashWallet(ctx, u.ID, amount)
		})
		if attempt == 0 && errors.Is(err, errs.ErrAlreadyExists) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	// Past this point the money has moved; notification failures must
	// not undo it.
	if err := s.notifier.WithdrawalRequested(ctx, u, w); err != nil {
		s.logger.Errorf("notify withdrawal %s: %s", w.DisplayID, err)
	}

	return w, nil
}

// ResolveWithdrawal finalizes a pending withdrawal. Completion keeps
// the wallet untouched (the debit already happened at request time);
// cancellation credits the requested amount back. Terminal states are
// one-way: resolving a non-pending withdrawal fails.
func (s *Service) ResolveWithdrawal(ctx context.Context, id int, status withdrawal.Status, adminNote string) (*withdrawal.Withdrawal, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidStatus, status)
	}

	var resolved *withdrawal.Withdrawal

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		w, err := s.repo.GetWithdrawalForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return fmt.Errorf("%w: withdrawal %d", errs.ErrNotFound, id)
			}
			return err
		}

		if w.Status != withdrawal.PENDING {
			return fmt.Errorf("%w: withdrawal %d is %s", errs.ErrAlreadyProcessed, id, w.Status)
		}

		processedAt := time.Now()
		if err = s.repo.SetWithdrawalResolution(ctx, id, status, adminNote, processedAt); err != nil {
			return err
		}

		if status == withdrawal.CANCELLED {
			// Refund the requested amount, not the net amount: the
			// original debit was the requested amount.
			if err = s.repo.CreditWallet(ctx, w.UserID, user.CashWallet, w.Amount); err != nil {
				return err
			}
		}

		w.Status = status
		w.AdminNote = adminNote
		w.ProcessedAt = &processedAt
		resolved = w

		return nil
	})
	if err != nil {
		return nil, err
	}

	return resolved, nil
}

// TransferToCash moves task earnings into the withdrawable wallet.
// The single two-column update conserves balance + cash_wallet.
func (s *Service) TransferToCash(ctx context.Context, telegramID int64, amount decimal.Decimal) (*user.User, error) {
	if amount.LessThan(MinTransfer) {
		return nil, fmt.Errorf("%w: minimum transfer is %s", errs.ErrBelowMinimum, MinTransfer)
	}

	u, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}

	var updated *user.User

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		updated, err = s.repo.TransferToCash(ctx, u.ID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// GetWithdrawals returns the user's withdrawal history, newest first.
func (s *Service) GetWithdrawals(ctx context.Context, telegramID int64) ([]*withdrawal.Withdrawal, error) {
	u, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}

	return s.repo.GetWithdrawalsByUserID(ctx, u.ID)
}

// PendingWithdrawals returns the admin processing queue, oldest first.
func (s *Service) PendingWithdrawals(ctx context.Context) ([]*withdrawal.Withdrawal, error) {
	return s.repo.GetPendingWithdrawals(ctx)
}

// Stats returns the admin dashboard counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.GetStats(ctx)
}
