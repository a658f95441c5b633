package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/user"
	"github.com/digitalvishon/taskpay/internal/models/withdrawal"
	"github.com/shopspring/decimal"
)

// Lock in case of t.Parallel call.
type mockRepository struct {
	users       map[int]*user.User
	withdrawals []*withdrawal.Withdrawal
	nextID      int
	mu          sync.Mutex
}

func newMockRepository(users ...*user.User) *mockRepository {
	m := &mockRepository{users: make(map[int]*user.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockRepository) GetUserByTelegramID(_ context.Context, telegramID int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TelegramID == telegramID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *mockRepository) GetUserForUpdate(_ context.Context, id int) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) CountWithdrawals(_ context.Context, userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, w := range m.withdrawals {
		if w.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) CreateWithdrawal(_ context.Context, w *withdrawal.Withdrawal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	w.ID = m.nextID
	w.CreatedAt = time.Now()
	copied := *w
	m.withdrawals = append(m.withdrawals, &copied)
	return nil
}

func (m *mockRepository) GetWithdrawalForUpdate(_ context.Context, id int) (*withdrawal.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.withdrawals {
		if w.ID == id {
			copied := *w
			return &copied, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *mockRepository) SetWithdrawalResolution(_ context.Context, id int, status withdrawal.Status, note string, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.withdrawals {
		if w.ID == id {
			w.Status = status
			w.AdminNote = note
			w.ProcessedAt = &processedAt
			return nil
		}
	}
	return errs.ErrNotFound
}

func (m *mockRepository) CreditWallet(_ context.Context, userID int, wallet user.Wallet, sum decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return errs.ErrNotFound
	}
	switch wallet {
	case user.Balance:
		u.Balance = u.Balance.Add(sum)
	case user.CashWallet:
		u.CashWallet = u.CashWallet.Add(sum)
	}
	return nil
}

func (m *mockRepository) DebitCashWallet(_ context.Context, userID int, sum decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return errs.ErrNotFound
	}
	updated := u.CashWallet.Sub(sum)
	if updated.IsNegative() {
		return errs.ErrNotEnoughFunds
	}
	u.CashWallet = updated
	return nil
}

func (m *mockRepository) TransferToCash(_ context.Context, userID int, sum decimal.Decimal) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if u.Balance.LessThan(sum) {
		return nil, errs.ErrNotEnoughFunds
	}
	u.Balance = u.Balance.Sub(sum)
	u.CashWallet = u.CashWallet.Add(sum)
	copied := *u
	return &copied, nil
}

func (m *mockRepository) GetWithdrawalsByUserID(_ context.Context, userID int) ([]*withdrawal.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*withdrawal.Withdrawal, 0)
	for _, w := range m.withdrawals {
		if w.UserID == userID {
			copied := *w
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockRepository) GetPendingWithdrawals(_ context.Context) ([]*withdrawal.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*withdrawal.Withdrawal, 0)
	for _, w := range m.withdrawals {
		if w.Status == withdrawal.PENDING {
			copied := *w
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockRepository) GetStats(_ context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &Stats{TotalUsers: len(m.users), TodayRevenue: decimal.Zero}
	for _, w := range m.withdrawals {
		if w.Status == withdrawal.PENDING {
			stats.PendingWithdrawals++
		}
	}
	return stats, nil
}

// mockTxManager serializes transactions the way a serializable
// database would, making multi-step mutations atomic to each other.
type mockTxManager struct {
	mu sync.Mutex
}

func (m *mockTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

// mockNotifier records notifications instead of sending them.
type mockNotifier struct {
	requested []*withdrawal.Withdrawal
	mu        sync.Mutex
}

func (m *mockNotifier) WithdrawalRequested(_ context.Context, _ *user.User, w *withdrawal.Withdrawal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested = append(m.requested, w)
	return nil
}

// collidingRepository fails the first CreateWithdrawal calls with a
// display id conflict, the way a unique index does.
type collidingRepository struct {
	*mockRepository
	attempts   []string
	collisions int
	mu         sync.Mutex
}

func (m *collidingRepository) CreateWithdrawal(ctx context.Context, w *withdrawal.Withdrawal) error {
	m.mu.Lock()
	m.attempts = append(m.attempts, w.DisplayID)
	failed := len(m.attempts) <= m.collisions
	m.mu.Unlock()

	if failed {
		return fmt.Errorf("%w: display id %q", errs.ErrAlreadyExists, w.DisplayID)
	}

	return m.mockRepository.CreateWithdrawal(ctx, w)
}

// countingTxManager reports how many transactions were opened.
type countingTxManager struct {
	mockTxManager
	calls int
}

func (m *countingTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return m.mockTxManager.Do(ctx, fn)
}
