package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/user"
	"github.com/digitalvishon/taskpay/internal/models/withdrawal"
	"github.com/digitalvishon/taskpay/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Stats is the admin dashboard counters payload.
type Stats struct {
	TodayRevenue       decimal.Decimal `json:"today_revenue"`
	TotalUsers         int             `json:"total_users"`
	ActiveTasks        int             `json:"active_tasks"`
	PendingReviews     int             `json:"pending_reviews"`
	PendingWithdrawals int             `json:"pending_withdrawals"`
	TodayUsers         int             `json:"today_users"`
	TodaySubmissions   int             `json:"today_submissions"`
}

type Repository interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*user.User, error)
	// GetUserForUpdate locks the user row for the rest of the
	// transaction. It is the serialization point for withdrawal
	// creation: the first-withdrawal count and the insert both happen
	// under this lock.
	GetUserForUpdate(ctx context.Context, id int) (*user.User, error)
	CountWithdrawals(ctx context.Context, userID int) (int, error)
	CreateWithdrawal(ctx context.Context, w *withdrawal.Withdrawal) error
	GetWithdrawalForUpdate(ctx context.Context, id int) (*withdrawal.Withdrawal, error)
	SetWithdrawalResolution(ctx context.Context, id int, status withdrawal.Status, note string, processedAt time.Time) error
	// CreditWallet atomically adds sum to one of the user's wallets.
	CreditWallet(ctx context.Context, userID int, w user.Wallet, sum decimal.Decimal) error
	// DebitCashWallet atomically subtracts sum from the cash wallet,
	// failing with errs.ErrNotEnoughFunds when it would go negative.
	DebitCashWallet(ctx context.Context, userID int, sum decimal.Decimal) error
	// TransferToCash atomically moves sum from balance to cash wallet.
	TransferToCash(ctx context.Context, userID int, sum decimal.Decimal) (*user.User, error)
	GetWithdrawalsByUserID(ctx context.Context, userID int) ([]*withdrawal.Withdrawal, error)
	GetPendingWithdrawals(ctx context.Context) ([]*withdrawal.Withdrawal, error)
	GetStats(ctx context.Context) (*Stats, error)
}

type Repo struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
	logger logger.Logger
}

func NewRepository(db *sql.DB, getter *trmsql.CtxGetter, logger logger.Logger) (*Repo, error) {
	if db == nil {
		return nil, errors.New("nil dependency: database")
	}
	if getter == nil {
		return nil, errors.New("nil dependency: transaction getter")
	}

	return &Repo{db: db, getter: getter, logger: logger}, nil
}

var _ Repository = (*Repo)(nil)

// creditQueries maps the wallet selector onto fixed statements. The
// column name never comes from caller input.
var creditQueries = map[user.Wallet]string{
	user.Balance:    "UPDATE users SET balance = balance + $1 WHERE id = $2",
	user.CashWallet: "UPDATE users SET cash_wallet = cash_wallet + $1 WHERE id = $2",
}

const userColumns = `
	id, telegram_id, username, first_name, balance, cash_wallet,
	refer_code, COALESCE(referred_by, ''), created_at
`

func scanUser(row *sql.Row) (*user.User, error) {
	u := new(user.User)

	err := row.Scan(
		&u.ID,
		&u.TelegramID,
		&u.Username,
		&u.FirstName,
		&u.Balance,
		&u.CashWallet,
		&u.ReferCode,
		&u.ReferredBy,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	return u, nil
}

func (r *Repo) GetUserByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE telegram_id = $1"

	return scanUser(r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, telegramID))
}

func (r *Repo) GetUserForUpdate(ctx context.Context, id int) (*user.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1 FOR UPDATE"

	return scanUser(r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *Repo) CountWithdrawals(ctx context.Context, userID int) (int, error) {
	const query = "SELECT COUNT(*) FROM withdrawals WHERE user_id = $1"

	var count int

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repo) CreateWithdrawal(ctx context.Context, w *withdrawal.Withdrawal) error {
	const query = `
		INSERT INTO withdrawals (
			display_id, user_id, amount, net_amount, charges,
			method, account_number, is_first_withdrawal, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at;
	`

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query,
		w.DisplayID, w.UserID, w.Amount, w.NetAmount, w.Charges,
		w.Method, w.AccountNumber, w.IsFirst, w.Status,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: display id %q", errs.ErrAlreadyExists, w.DisplayID)
		}
		return fmt.Errorf("create withdrawal: %w", err)
	}

	return nil
}

const withdrawalColumns = `
	id, display_id, user_id, amount, net_amount, charges, method,
	account_number, status, is_first_withdrawal,
	COALESCE(admin_note, ''), processed_at, created_at
`

func scanWithdrawal(row *sql.Row) (*withdrawal.Withdrawal, error) {
	w := new(withdrawal.Withdrawal)

	err := row.Scan(
		&w.ID,
		&w.DisplayID,
		&w.UserID,
		&w.Amount,
		&w.NetAmount,
		&w.Charges,
		&w.Method,
		&w.AccountNumber,
		&w.Status,
		&w.IsFirst,
		&w.AdminNote,
		&w.ProcessedAt,
		&w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	return w, nil
}

func (r *Repo) GetWithdrawalForUpdate(ctx context.Context, id int) (*withdrawal.Withdrawal, error) {
	query := "SELECT " + withdrawalColumns + " FROM withdrawals WHERE id = $1 FOR UPDATE"

	return scanWithdrawal(r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *Repo) SetWithdrawalResolution(ctx context.Context, id int, status withdrawal.Status, note string, processedAt time.Time) error {
	const query = `
		UPDATE withdrawals SET
			status = $1,
			admin_note = $2,
			processed_at = $3
		WHERE id = $4;
	`

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).
		ExecContext(ctx, query, status, note, processedAt, id)
	if err != nil {
		return fmt.Errorf("resolve withdrawal: %w", err)
	}

	return nil
}

func (r *Repo) CreditWallet(ctx context.Context, userID int, w user.Wallet, sum decimal.Decimal) error {
	query, ok := creditQueries[w]
	if !ok {
		return fmt.Errorf("unknown wallet selector: %v", w)
	}

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query, sum, userID)
	if err != nil {
		return fmt.Errorf("credit %s: %w", w, err)
	}

	return nil
}

func (r *Repo) DebitCashWallet(ctx context.Context, userID int, sum decimal.Decimal) error {
	const query = `
		UPDATE users SET
			cash_wallet = cash_wallet - $1
		WHERE id = $2
			RETURNING cash_wallet;
	`

	var updatedWallet decimal.Decimal

	err := r.getter.DefaultTrOrDB(ctx, r.db).
		QueryRowContext(ctx, query, sum, userID).
		Scan(&updatedWallet)
	if err != nil {
		return err
	}

	if updatedWallet.IsNegative() {
		return errs.ErrNotEnoughFunds
	}

	return nil
}

func (r *Repo) TransferToCash(ctx context.Context, userID int, sum decimal.Decimal) (*user.User, error) {
	query := `
		UPDATE users SET
			balance = balance - $1,
			cash_wallet = cash_wallet + $1
		WHERE id = $2
			RETURNING ` + userColumns + ";"

	u, err := scanUser(r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, sum, userID))
	if err != nil {
		return nil, err
	}

	if u.Balance.IsNegative() {
		return nil, errs.ErrNotEnoughFunds
	}

	return u, nil
}

func (r *Repo) GetWithdrawalsByUserID(ctx context.Context, userID int) ([]*withdrawal.Withdrawal, error) {
	query := "SELECT " + withdrawalColumns + ` FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 50;
	`

	return r.queryWithdrawals(ctx, query, userID)
}

func (r *Repo) GetPendingWithdrawals(ctx context.Context) ([]*withdrawal.Withdrawal, error) {
	query := "SELECT " + withdrawalColumns + ` FROM withdrawals
		WHERE status = 'pending'
		ORDER BY created_at ASC;
	`

	return r.queryWithdrawals(ctx, query)
}

func (r *Repo) queryWithdrawals(ctx context.Context, query string, args ...any) ([]*withdrawal.Withdrawal, error) {
	withdrawals := make([]*withdrawal.Withdrawal, 0)

	rows, err := r.getter.DefaultTrOrDB(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err = rows.Close(); err != nil {
			r.logger.Errorf("close rows: %s", err)
		}
	}()

	for rows.Next() {
		w := new(withdrawal.Withdrawal)
		err = rows.Scan(
			&w.ID,
			&w.DisplayID,
			&w.UserID,
			&w.Amount,
			&w.NetAmount,
			&w.Charges,
			&w.Method,
			&w.AccountNumber,
			&w.Status,
			&w.IsFirst,
			&w.AdminNote,
			&w.ProcessedAt,
			&w.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		withdrawals = append(withdrawals, w)
	}

	// Rows.Err will report the last error encountered by Rows.Scan.
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return withdrawals, nil
}

func (r *Repo) GetStats(ctx context.Context) (*Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM micro_jobs WHERE status = 'active'),
			(SELECT COUNT(*) FROM task_submissions WHERE status = 'pending'),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM users WHERE created_at::date = CURRENT_DATE),
			(SELECT COALESCE(SUM(amount), 0) FROM withdrawals
				WHERE created_at::date = CURRENT_DATE AND status = 'completed'),
			(SELECT COUNT(*) FROM task_submissions WHERE created_at::date = CURRENT_DATE);
	`

	stats := new(Stats)

	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.ActiveTasks,
		&stats.PendingReviews,
		&stats.PendingWithdrawals,
		&stats.TodayUsers,
		&stats.TodayRevenue,
		&stats.TodaySubmissions,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
