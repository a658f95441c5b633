package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/digitalvishon/taskpay/internal/config"
	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/task"
	"github.com/digitalvishon/taskpay/pkg/logger"
	"github.com/shopspring/decimal"
)

// TxManager runs a function within a single database transaction.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service handles task submissions: creation at task completion and
// the admin review that credits the user's earnings balance.
type Service struct {
	repo   Repository
	trm    TxManager
	logger logger.Logger
	config *config.Config
}

func NewService(repo Repository, trm TxManager, logger logger.Logger, config *config.Config) (*Service, error) {
	if config == nil {
		return nil, errors.New("nil dependency: config")
	}
	if trm == nil {
		return nil, errors.New("nil dependency: transaction manager")
	}
	return &Service{repo: repo, trm: trm, logger: logger, config: config}, nil
}

// CreateSubmission records a pending claim of task completion. It
// snapshots the task's current reward into the submission so later
// catalog edits do not change what a reviewed user is owed. The task
// row is locked for the span of the cap and daily-limit counts and the
// insert, so concurrent submitters cannot slip past either limit.
func (s *Service) CreateSubmission(ctx context.Context, telegramID int64, taskID, screenshotURL string) (*task.Submission, error) {
	u, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}

	sub := &task.Submission{
		UserID:        u.ID,
		TaskID:        taskID,
		ScreenshotURL: screenshotURL,
		Status:        task.PENDING,
	}

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		job, err := s.repo.GetTaskForUpdate(ctx, taskID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return fmt.Errorf("%w: task %q", errs.ErrNotFound, taskID)
			}
			return err
		}

		if job.Status != task.StatusActive {
			return fmt.Errorf("%w: task %q is %s", errs.ErrTaskClosed, taskID, job.Status)
		}

		total, err := s.repo.CountTaskSubmissions(ctx, taskID)
		if err != nil {
			return err
		}
		if total >= job.MaxSubmissions {
			return fmt.Errorf("%w: task %q reached its submission cap", errs.ErrTaskClosed, taskID)
		}

		today, err := s.repo.CountUserTaskSubmissionsToday(ctx, u.ID, taskID)
		if err != nil {
			return err
		}
		if today >= job.DailyLimit {
			return fmt.Errorf("%w: task %q allows %d per day", errs.ErrDailyLimit, taskID, job.DailyLimit)
		}

		sub.Amount = job.Amount

		return s.repo.CreateSubmission(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// ReviewSubmission settles a pending submission. Approval credits the
// effective amount to the user's balance in the same transaction that
// flips the status, so the credit happens at most once. An adjusted
// amount, when positive, overrides the stored one and is persisted as
// the submission's amount.
func (s *Service) ReviewSubmission(ctx context.Context, id int, decision task.SubmissionStatus, adminReview string, adjustedAmount *decimal.Decimal) (*task.Submission, error) {
	if decision != task.SUCCESS && decision != task.REJECTED {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidStatus, decision)
	}

	var reviewed *task.Submission

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		sub, err := s.repo.GetSubmissionForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return fmt.Errorf("%w: submission %d", errs.ErrNotFound, id)
			}
			return err
		}

		if sub.Status != task.PENDING {
			return fmt.Errorf("%w: submission %d is %s", errs.ErrAlreadyProcessed, id, sub.Status)
		}

		effective := sub.Amount
		if adjustedAmount != nil && adjustedAmount.IsPositive() {
			effective = *adjustedAmount
		}

		if err = s.repo.SetSubmissionReview(ctx, id, decision, adminReview, effective); err != nil {
			return err
		}

		if decision == task.SUCCESS {
			if err = s.repo.CreditBalance(ctx, sub.UserID, effective); err != nil {
				return err
			}
		}

		sub.Status = decision
		sub.AdminReview = adminReview
		sub.Amount = effective
		reviewed = sub

		return nil
	})
	if err != nil {
		return nil, err
	}

	return reviewed, nil
}

// PendingSubmissions returns the admin review queue, oldest first.
func (s *Service) PendingSubmissions(ctx context.Context) ([]*task.Submission, error) {
	return s.repo.GetPendingSubmissions(ctx)
}

// UserSubmissions returns a user's submission history, newest first.
func (s *Service) UserSubmissions(ctx context.Context, telegramID int64) ([]*task.Submission, error) {
	u, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}

	return s.repo.GetSubmissionsByUserID(ctx, u.ID)
}
