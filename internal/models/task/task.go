package task

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmissionStatus is the review state of a task submission.
type SubmissionStatus string

const (
	PENDING  SubmissionStatus = "pending"
	SUCCESS  SubmissionStatus = "success"
	REJECTED SubmissionStatus = "rejected"
)

// MicroJob is a sponsored task users complete for a fixed reward.
// Read-only here; the catalog is owned by the task-management side.
type MicroJob struct {
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	TaskID         string          `db:"task_id" json:"task_id"`
	Title          string          `db:"title" json:"title"`
	Description    string          `db:"description" json:"description"`
	CPALink        string          `db:"cpa_link" json:"cpa_link"`
	Status         string          `db:"status" json:"status"`
	MaxSubmissions int             `db:"max_submissions" json:"max_submissions"`
	DailyLimit     int             `db:"daily_limit" json:"daily_limit"`
	ID             int             `db:"id" json:"id"`
}

const StatusActive = "active"

// Submission is a user's claim of having completed a task.
// Amount snapshots the reward owed at submission time; an admin may
// adjust it at review, and the stored value then reflects what was
// actually credited.
type Submission struct {
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	Amount        decimal.Decimal  `db:"amount" json:"amount"`
	TaskID        string           `db:"task_id" json:"task_id"`
	ScreenshotURL string           `db:"screenshot_url" json:"screenshot_url"`
	Status        SubmissionStatus `db:"status" json:"status"`
	AdminReview   string           `db:"admin_review" json:"admin_review,omitempty"`
	ID            int              `db:"id" json:"id"`
	UserID        int              `db:"user_id" json:"user_id"`
}
