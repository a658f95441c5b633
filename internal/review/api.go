package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/task"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// SubmitParams defines parameters for HandleCreateSubmission.
type SubmitParams struct {
	ScreenshotURL string `json:"screenshot_url"`
	TaskID        string `json:"-"`
	TelegramID    int64  `json:"-"`
}

// ReviewParams defines parameters for HandleReviewSubmission.
type ReviewParams struct {
	AdjustedAmount *decimal.Decimal      `json:"adjusted_amount,omitempty"`
	Status         task.SubmissionStatus `json:"status"`
	AdminReview    string                `json:"admin_review"`
	ID             int                   `json:"-"`
}

// UserParams identifies the acting user.
type UserParams struct {
	TelegramID int64
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Submit task completion (POST /api/tasks/{taskID}/submissions/{telegramID}).
	HandleCreateSubmission(w http.ResponseWriter, r *http.Request, params SubmitParams)
	// Submission history (GET /api/tasks/user/{telegramID}/submissions).
	HandleUserSubmissions(w http.ResponseWriter, r *http.Request, params UserParams)
	// Admin queue (GET /api/admin/submissions/pending).
	HandlePendingSubmissions(w http.ResponseWriter, r *http.Request)
	// Approve/reject a submission (POST /api/admin/submissions/{id}/review).
	HandleReviewSubmission(w http.ResponseWriter, r *http.Request, params ReviewParams)
}

var _ ServerInterface = (*Service)(nil)

// ServerInterfaceWrapper converts payloads to parameters.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

// Create submission operation middleware.
func (siw *ServerInterfaceWrapper) HandleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var params SubmitParams
	var err error

	params.TaskID = chi.URLParam(r, "taskID")

	if params.TelegramID, err = strconv.ParseInt(chi.URLParam(r, "telegramID"), 10, 64); err != nil {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: telegramID must be an integer", errs.ErrInvalidRequest))
		return
	}

	if err = decodeBody(r, &params); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	// ------------- Required JSON body parameter "screenshot_url" ----

	if params.ScreenshotURL == "" {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: screenshot_url is required", errs.ErrInvalidRequest))
		return
	}

	siw.Handler.HandleCreateSubmission(w, r, params)
}

// Submission history operation middleware.
func (siw *ServerInterfaceWrapper) HandleUserSubmissions(w http.ResponseWriter, r *http.Request) {
	var params UserParams
	var err error

	if params.TelegramID, err = strconv.ParseInt(chi.URLParam(r, "telegramID"), 10, 64); err != nil {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: telegramID must be an integer", errs.ErrInvalidRequest))
		return
	}

	siw.Handler.HandleUserSubmissions(w, r, params)
}

// Review submission operation middleware.
func (siw *ServerInterfaceWrapper) HandleReviewSubmission(w http.ResponseWriter, r *http.Request) {
	var params ReviewParams
	var err error

	if params.ID, err = strconv.Atoi(chi.URLParam(r, "id")); err != nil {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: id must be an integer", errs.ErrInvalidRequest))
		return
	}

	if err = decodeBody(r, &params); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.Handler.HandleReviewSubmission(w, r, params)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", errs.ErrInvalidRequest)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidRequest, err)
	}

	return nil
}

type ChiServerOptions struct {
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
	BaseRouter       chi.Router
	BaseURL          string
	AdminMiddlewares []MiddlewareFunc
}

// HandlerWithOptions creates http.Handler with additional options.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/tasks/{taskID}/submissions/{telegramID}", wrapper.HandleCreateSubmission)
		r.Get(options.BaseURL+"/tasks/user/{telegramID}/submissions", wrapper.HandleUserSubmissions)
	})

	r.Group(func(r chi.Router) {
		for _, middleware := range options.AdminMiddlewares {
			r.Use(middleware)
		}
		r.Get(options.BaseURL+"/admin/submissions/pending", si.HandlePendingSubmissions)
		r.Post(options.BaseURL+"/admin/submissions/{id}/review", wrapper.HandleReviewSubmission)
	})

	return r
}

// ErrorHandlerFunc handles sending of an error in the JSON format,
// writing appropriate status code and handling the failure to marshal that.
func ErrorHandlerFunc(w http.ResponseWriter, _ *http.Request, err error) {
	errJSON := errs.JSON{Code: errs.Code(err), Error: err.Error()}
	code := http.StatusInternalServerError

	switch {
	// Status Bad Request (400).
	case errors.Is(err, errs.ErrInvalidRequest) ||
		errors.Is(err, errs.ErrInvalidAmount) ||
		errors.Is(err, errs.ErrInvalidStatus):
		code = http.StatusBadRequest

	// Status Forbidden (403).
	case errors.Is(err, errs.ErrTaskClosed) ||
		errors.Is(err, errs.ErrDailyLimit):
		code = http.StatusForbidden

	// Status Not Found (404).
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound

	// Status Conflict (409).
	case errors.Is(err, errs.ErrAlreadyProcessed):
		code = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err = json.NewEncoder(w).Encode(errJSON); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
