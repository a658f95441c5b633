package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/task"
	"github.com/digitalvishon/taskpay/internal/models/user"
	"github.com/digitalvishon/taskpay/pkg/logger"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*user.User, error)
	// GetTaskForUpdate locks the task row for the rest of the
	// transaction. It is the serialization point for submission
	// creation: the cap and daily-limit counts and the insert all
	// happen under this lock.
	GetTaskForUpdate(ctx context.Context, taskID string) (*task.MicroJob, error)
	CreateSubmission(ctx context.Context, sub *task.Submission) error
	CountTaskSubmissions(ctx context.Context, taskID string) (int, error)
	CountUserTaskSubmissionsToday(ctx context.Context, userID int, taskID string) (int, error)
	// GetSubmissionForUpdate locks the submission row so a concurrent
	// review of the same submission waits and then sees the terminal
	// status.
	GetSubmissionForUpdate(ctx context.Context, id int) (*task.Submission, error)
	SetSubmissionReview(ctx context.Context, id int, status task.SubmissionStatus, review string, amount decimal.Decimal) error
	// CreditBalance atomically adds sum to the user's task earnings.
	CreditBalance(ctx context.Context, userID int, sum decimal.Decimal) error
	GetPendingSubmissions(ctx context.Context) ([]*task.Submission, error)
	GetSubmissionsByUserID(ctx context.Context, userID int) ([]*task.Submission, error)
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

func (r *Repo) GetUserByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	const query = `
		SELECT id, telegram_id, username, first_name, balance, cash_wallet,
			refer_code, COALESCE(referred_by, ''), created_at
		FROM users WHERE telegram_id = $1;
	`

	u := new(user.User)

	err := r.db.QueryRowContext(ctx, query, telegramID).Scan(
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

func (r *Repo) GetTaskForUpdate(ctx context.Context, taskID string) (*task.MicroJob, error) {
	const query = `
		SELECT id, task_id, title, description, cpa_link, amount, status,
			max_submissions, daily_limit, created_at
		FROM micro_jobs WHERE task_id = $1 FOR UPDATE;
	`

	job := new(task.MicroJob)

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, taskID).Scan(
		&job.ID,
		&job.TaskID,
		&job.Title,
		&job.Description,
		&job.CPALink,
		&job.Amount,
		&job.Status,
		&job.MaxSubmissions,
		&job.DailyLimit,
		&job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	return job, nil
}

func (r *Repo) CreateSubmission(ctx context.Context, sub *task.Submission) error {
	const query = `
		INSERT INTO task_submissions (user_id, task_id, screenshot_url, status, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at;
	`

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query,
		sub.UserID, sub.TaskID, sub.ScreenshotURL, sub.Status, sub.Amount,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}

	return nil
}

func (r *Repo) CountTaskSubmissions(ctx context.Context, taskID string) (int, error) {
	const query = "SELECT COUNT(*) FROM task_submissions WHERE task_id = $1"

	var count int

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, taskID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repo) CountUserTaskSubmissionsToday(ctx context.Context, userID int, taskID string) (int, error) {
	const query = `
		SELECT COUNT(*) FROM task_submissions
		WHERE user_id = $1 AND task_id = $2 AND created_at::date = CURRENT_DATE;
	`

	var count int

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, userID, taskID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

const submissionColumns = `
	id, user_id, task_id, screenshot_url, status,
	COALESCE(admin_review, ''), amount, created_at
`

func (r *Repo) GetSubmissionForUpdate(ctx context.Context, id int) (*task.Submission, error) {
	query := "SELECT " + submissionColumns + " FROM task_submissions WHERE id = $1 FOR UPDATE"

	sub := new(task.Submission)

	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.TaskID,
		&sub.ScreenshotURL,
		&sub.Status,
		&sub.AdminReview,
		&sub.Amount,
		&sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	return sub, nil
}

func (r *Repo) SetSubmissionReview(ctx context.Context, id int, status task.SubmissionStatus, review string, amount decimal.Decimal) error {
	const query = `
		UPDATE task_submissions SET
			status = $1,
			admin_review = $2,
			amount = $3
		WHERE id = $4;
	`

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).
		ExecContext(ctx, query, status, review, amount, id)
	if err != nil {
		return fmt.Errorf("set submission review: %w", err)
	}

	return nil
}

func (r *Repo) CreditBalance(ctx context.Context, userID int, sum decimal.Decimal) error {
	const query = "UPDATE users SET balance = balance + $1 WHERE id = $2"

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query, sum, userID)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	return nil
}

func (r *Repo) GetPendingSubmissions(ctx context.Context) ([]*task.Submission, error) {
	query := "SELECT " + submissionColumns + ` FROM task_submissions
		WHERE status = 'pending'
		ORDER BY created_at ASC;
	`

	return r.querySubmissions(ctx, query)
}

func (r *Repo) GetSubmissionsByUserID(ctx context.Context, userID int) ([]*task.Submission, error) {
	query := "SELECT " + submissionColumns + ` FROM task_submissions
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`

	return r.querySubmissions(ctx, query, userID)
}

func (r *Repo) querySubmissions(ctx context.Context, query string, args ...any) ([]*task.Submission, error) {
	submissions := make([]*task.Submission, 0)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err = rows.Close(); err != nil {
			r.logger.Errorf("close rows: %s", err)
		}
	}()

	for rows.Next() {
		sub := new(task.Submission)
		err = rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.TaskID,
			&sub.ScreenshotURL,
			&sub.Status,
			&sub.AdminReview,
			&sub.Amount,
			&sub.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		submissions = append(submissions, sub)
	}

	// Rows.Err will report the last error encountered by Rows.Scan.
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return submissions, nil
}
