package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/digitalvishon/taskpay/internal/config"
	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/user"
	"github.com/digitalvishon/taskpay/internal/models/withdrawal"
	"github.com/digitalvishon/taskpay/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, repo Repository) (*Service, *mockNotifier) {
	t.Helper()

	notifier := new(mockNotifier)
	service, err := NewService(repo, new(mockTxManager), notifier,
		logger.NewWithZap(zap.NewNop()), new(config.Config))
	require.NoError(t, err)

	return service, notifier
}

func testUser(id int, telegramID int64, balance, cashWallet string) *user.User {
	return &user.User{
		ID:         id,
		TelegramID: telegramID,
		FirstName:  "Rahim",
		ReferCode:  "DVT-TEST0001",
		Balance:    decimal.RequireFromString(balance),
		CashWallet: decimal.RequireFromString(cashWallet),
	}
}

func TestCreateWithdrawal_FirstWithdrawal(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "0", "1000"))
	service, notifier := newTestService(t, repo)

	w, err := service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
	require.NoError(t, err)

	assert.True(t, w.IsFirst)
	assert.Equal(t, withdrawal.PENDING, w.Status)
	assert.True(t, w.Charges.Equal(decimal.RequireFromString("20")), "charges: got %s", w.Charges)
	assert.True(t, w.NetAmount.Equal(decimal.RequireFromString("80")), "net: got %s", w.NetAmount)
	assert.NotEmpty(t, w.DisplayID)

	u, err := repo.GetUserByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, u.CashWallet.Equal(decimal.RequireFromString("900")),
		"cash wallet after debit: got %s", u.CashWallet)

	assert.Len(t, notifier.requested, 1)
}

func TestCreateWithdrawal_SecondIsNotFirst(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "0", "1000"))
	service, _ := newTestService(t, repo)

	_, err := service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
	require.NoError(t, err)

	second, err := service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("300"), withdrawal.NAGAD, "01722222222")
	require.NoError(t, err)

	assert.False(t, second.IsFirst)
	assert.True(t, second.Charges.Equal(decimal.RequireFromString("30")),
		"regular charge is 10%% only: got %s", second.Charges)
	assert.True(t, second.NetAmount.Equal(decimal.RequireFromString("270")))
}

func TestCreateWithdrawal_Validation(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		amount  string
	}{
		{name: "below minimum", amount: "50", wantErr: errs.ErrBelowMinimum},
		{name: "not a multiple of 100", amount: "150", wantErr: errs.ErrWrongMultiple},
		{name: "insufficient cash wallet", amount: "2000", wantErr: errs.ErrNotEnoughFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository(testUser(1, 42, "500", "1000"))
			service, notifier := newTestService(t, repo)

			_, err := service.CreateWithdrawal(context.Background(), 42,
				decimal.RequireFromString(tt.amount), withdrawal.BKASH, "01711111111")
			assert.ErrorIs(t, err, tt.wantErr)

			// No partial state on rejection.
			u, err := repo.GetUserByTelegramID(context.Background(), 42)
			require.NoError(t, err)
			assert.True(t, u.CashWallet.Equal(decimal.RequireFromString("1000")))
			assert.Empty(t, notifier.requested)
		})
	}
}

func TestCreateWithdrawal_UnknownUser(t *testing.T) {
	service, _ := newTestService(t, newMockRepository())

	_, err := service.CreateWithdrawal(context.Background(), 404,
		decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestResolveWithdrawal_CancelRestoresWallet(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "0", "1000"))
	service, _ := newTestService(t, repo)

	w, err := service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
	require.NoError(t, err)

	cancelled, err := service.ResolveWithdrawal(context.Background(), w.ID, withdrawal.CANCELLED, "account unreachable")
	require.NoError(t, err)

	assert.Equal(t, withdrawal.CANCELLED, cancelled.Status)
	assert.Equal(t, "account unreachable", cancelled.AdminNote)
	assert.NotNil(t, cancelled.ProcessedAt)

	// The requested amount comes back, not the net amount.
	u, err := repo.GetUserByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, u.CashWallet.Equal(decimal.RequireFromString("1000")),
		"cash wallet after cancel: got %s", u.CashWallet)
}

func TestResolveWithdrawal_CompleteKeepsWallet(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "0", "1000"))
	service, _ := newTestService(t, repo)

	w, err := service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("500"), withdrawal.ROCKET, "01733333333")
	require.NoError(t, err)

	completed, err := service.ResolveWithdrawal(context.Background(), w.ID, withdrawal.COMPLETED, "paid")
	require.NoError(t, err)
	assert.Equal(t, withdrawal.COMPLETED, completed.Status)

	u, err := repo.GetUserByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, u.CashWallet.Equal(decimal.RequireFromString("500")),
		"completion must not move money again: got %s", u.CashWallet)
}

func TestResolveWithdrawal_TerminalStatesAreOneWay(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "0", "1000"))
	service, _ := newTestService(t, repo)

	w, err := service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
	require.NoError(t, err)

	_, err = service.ResolveWithdrawal(context.Background(), w.ID, withdrawal.CANCELLED, "")
	require.NoError(t, err)

	// A second resolution must fail and must not double-refund.
	_, err = service.ResolveWithdrawal(context.Background(), w.ID, withdrawal.CANCELLED, "")
	assert.ErrorIs(t, err, errs.ErrAlreadyProcessed)

	_, err = service.ResolveWithdrawal(context.Background(), w.ID, withdrawal.COMPLETED, "")
	assert.ErrorIs(t, err, errs.ErrAlreadyProcessed)

	u, err := repo.GetUserByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, u.CashWallet.Equal(decimal.RequireFromString("1000")))
}

func TestResolveWithdrawal_Validation(t *testing.T) {
	service, _ := newTestService(t, newMockRepository())

	_, err := service.ResolveWithdrawal(context.Background(), 1, withdrawal.PENDING, "")
	assert.ErrorIs(t, err, errs.ErrInvalidStatus)

	_, err = service.ResolveWithdrawal(context.Background(), 1, withdrawal.Status("paid"), "")
	assert.ErrorIs(t, err, errs.ErrInvalidStatus)

	_, err = service.ResolveWithdrawal(context.Background(), 404, withdrawal.COMPLETED, "")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTransferToCash_ConservesTotal(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "250", "100"))
	service, _ := newTestService(t, repo)

	before := decimal.RequireFromString("350")

	u, err := service.TransferToCash(context.Background(), 42, decimal.RequireFromString("200"))
	require.NoError(t, err)

	assert.True(t, u.Balance.Equal(decimal.RequireFromString("50")))
	assert.True(t, u.CashWallet.Equal(decimal.RequireFromString("300")))
	assert.True(t, u.Balance.Add(u.CashWallet).Equal(before),
		"balance+cash_wallet changed: got %s", u.Balance.Add(u.CashWallet))
}

func TestTransferToCash_Validation(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "100", "0"))
	service, _ := newTestService(t, repo)

	_, err := service.TransferToCash(context.Background(), 42, decimal.RequireFromString("5"))
	assert.ErrorIs(t, err, errs.ErrBelowMinimum)

	_, err = service.TransferToCash(context.Background(), 42, decimal.RequireFromString("500"))
	assert.ErrorIs(t, err, errs.ErrNotEnoughFunds)

	_, err = service.TransferToCash(context.Background(), 404, decimal.RequireFromString("50"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestQuoteMatchesCreatedRecord(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "0", "1000"))
	service, _ := newTestService(t, repo)

	quote, err := service.QuoteWithdrawal(context.Background(), 42, decimal.RequireFromString("500"))
	require.NoError(t, err)
	assert.True(t, quote.IsFirst)

	w, err := service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("500"), withdrawal.BKASH, "01711111111")
	require.NoError(t, err)

	assert.True(t, quote.Fee.TotalCharges.Equal(w.Charges),
		"quoted %s, charged %s", quote.Fee.TotalCharges, w.Charges)
	assert.True(t, quote.Fee.NetAmount.Equal(w.NetAmount))
}

func TestConcurrentWithdrawals_OnlyOneSucceeds(t *testing.T) {
	// Enough funds for exactly one request.
	repo := newMockRepository(testUser(1, 42, "0", "100"))
	service, _ := newTestService(t, repo)

	const workers = 10

	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateWithdrawal(context.Background(), 42,
				decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
			errCh <- err
		}()
	}

	wg.Wait()
	close(errCh)

	var succeeded, insufficient int
	for err := range errCh {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, errs.ErrNotEnoughFunds):
			insufficient++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, insufficient)

	u, err := repo.GetUserByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, u.CashWallet.IsZero(), "final cash wallet: got %s", u.CashWallet)
}

func TestConcurrentWithdrawals_ExactlyOneIsFirst(t *testing.T) {
	repo := newMockRepository(testUser(1, 42, "0", "10000"))
	service, _ := newTestService(t, repo)

	const workers = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateWithdrawal(context.Background(), 42,
				decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	withdrawals, err := repo.GetWithdrawalsByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, withdrawals, workers)

	firsts := 0
	for _, w := range withdrawals {
		if w.IsFirst {
			firsts++
		}
	}
	assert.Equal(t, 1, firsts, "exactly one withdrawal may carry the first-withdrawal fee")
}

func TestCreateWithdrawal_DisplayIDCollisionRerunsTransaction(t *testing.T) {
	repo := &collidingRepository{
		mockRepository: newMockRepository(testUser(1, 42, "0", "1000")),
		collisions:     1,
	}
	trm := new(countingTxManager)

	service, err := NewService(repo, trm, new(mockNotifier),
		logger.NewWithZap(zap.NewNop()), new(config.Config))
	require.NoError(t, err)

	w, err := service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
	require.NoError(t, err)

	// The conflicting INSERT aborts its transaction; the second attempt
	// must run in a new one with a regenerated id.
	assert.Equal(t, 2, trm.calls)
	require.Len(t, repo.attempts, 2)
	assert.NotEqual(t, repo.attempts[0], repo.attempts[1])
	assert.Equal(t, repo.attempts[1], w.DisplayID)

	u, err := repo.GetUserByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, u.CashWallet.Equal(decimal.RequireFromString("900")),
		"debited more than once across retries: got %s", u.CashWallet)
}

func TestCreateWithdrawal_TwoDisplayIDCollisionsSurface(t *testing.T) {
	repo := &collidingRepository{
		mockRepository: newMockRepository(testUser(1, 42, "0", "1000")),
		collisions:     2,
	}
	trm := new(countingTxManager)

	service, err := NewService(repo, trm, new(mockNotifier),
		logger.NewWithZap(zap.NewNop()), new(config.Config))
	require.NoError(t, err)

	_, err = service.CreateWithdrawal(context.Background(), 42,
		decimal.RequireFromString("100"), withdrawal.BKASH, "01711111111")
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	assert.Equal(t, 2, trm.calls, "a single retry, not a loop")

	u, err := repo.GetUserByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, u.CashWallet.Equal(decimal.RequireFromString("1000")),
		"failed request must not move money: got %s", u.CashWallet)
}
