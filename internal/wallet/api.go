package wallet

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/withdrawal"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// UserParams identifies the acting user.
type UserParams struct {
	TelegramID int64
}

// QuoteParams defines parameters for HandleQuoteWithdrawal.
type QuoteParams struct {
	Amount     decimal.Decimal
	TelegramID int64
}

// CreateWithdrawalParams defines parameters for HandleCreateWithdrawal.
type CreateWithdrawalParams struct {
	Amount        decimal.Decimal   `json:"amount"`
	Method        withdrawal.Method `json:"method"`
	AccountNumber string            `json:"account_number"`
	TelegramID    int64             `json:"-"`
}

// TransferParams defines parameters for HandleTransferToCash.
type TransferParams struct {
	Amount     decimal.Decimal `json:"amount"`
	TelegramID int64           `json:"-"`
}

// ProcessParams defines parameters for HandleProcessWithdrawal.
type ProcessParams struct {
	Status    withdrawal.Status `json:"status"`
	AdminNote string            `json:"admin_note"`
	ID        int               `json:"-"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Quote withdrawal fees (GET /api/withdrawals/calculate/{telegramID}).
	HandleQuoteWithdrawal(w http.ResponseWriter, r *http.Request, params QuoteParams)
	// Request a withdrawal (POST /api/withdrawals/request/{telegramID}).
	HandleCreateWithdrawal(w http.ResponseWriter, r *http.Request, params CreateWithdrawalParams)
	// Withdrawal history (GET /api/withdrawals/user/{telegramID}).
	HandleGetWithdrawals(w http.ResponseWriter, r *http.Request, params UserParams)
	// Payout methods (GET /api/withdrawals/methods).
	HandleGetMethods(w http.ResponseWriter, r *http.Request)
	// Withdrawal rules (GET /api/withdrawals/rules).
	HandleGetRules(w http.ResponseWriter, r *http.Request)
	// Transfer earnings to cash wallet (POST /api/users/{telegramID}/transfer).
	HandleTransferToCash(w http.ResponseWriter, r *http.Request, params TransferParams)
	// Admin queue (GET /api/admin/withdrawals/pending).
	HandlePendingWithdrawals(w http.ResponseWriter, r *http.Request)
	// Complete/cancel a withdrawal (POST /api/admin/withdrawals/{id}/process).
	HandleProcessWithdrawal(w http.ResponseWriter, r *http.Request, params ProcessParams)
	// Dashboard counters (GET /api/admin/stats).
	HandleStats(w http.ResponseWriter, r *http.Request)
}

var _ ServerInterface = (*Service)(nil)

// ServerInterfaceWrapper converts payloads to parameters.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

func telegramIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "telegramID"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: telegramID must be an integer", errs.ErrInvalidRequest)
	}
	return id, nil
}

// Quote operation middleware.
func (siw *ServerInterfaceWrapper) HandleQuoteWithdrawal(w http.ResponseWriter, r *http.Request) {
	var params QuoteParams
	var err error

	if params.TelegramID, err = telegramIDParam(r); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	// ------------- Required query parameter "amount" ----------------

	raw := r.URL.Query().Get("amount")
	if raw == "" {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: query parameter amount is required", errs.ErrInvalidRequest))
		return
	}
	if params.Amount, err = decimal.NewFromString(raw); err != nil {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: %q", errs.ErrInvalidAmount, raw))
		return
	}

	siw.Handler.HandleQuoteWithdrawal(w, r, params)
}

// Create withdrawal operation middleware.
func (siw *ServerInterfaceWrapper) HandleCreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var params CreateWithdrawalParams
	var err error

	if params.TelegramID, err = telegramIDParam(r); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	if err = decodeBody(r, &params); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	// ------------- Required JSON body parameter "method" ------------

	if !params.Method.Valid() {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: unsupported method %q", errs.ErrInvalidRequest, params.Method))
		return
	}

	// ------------- Required JSON body parameter "account_number" ----

	if params.AccountNumber == "" {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: account_number is required", errs.ErrInvalidRequest))
		return
	}

	siw.Handler.HandleCreateWithdrawal(w, r, params)
}

// Withdrawal history operation middleware.
func (siw *ServerInterfaceWrapper) HandleGetWithdrawals(w http.ResponseWriter, r *http.Request) {
	var params UserParams
	var err error

	if params.TelegramID, err = telegramIDParam(r); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.Handler.HandleGetWithdrawals(w, r, params)
}

// Transfer operation middleware.
func (siw *ServerInterfaceWrapper) HandleTransferToCash(w http.ResponseWriter, r *http.Request) {
	var params TransferParams
	var err error

	if params.TelegramID, err = telegramIDParam(r); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	if err = decodeBody(r, &params); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.Handler.HandleTransferToCash(w, r, params)
}

// Process withdrawal operation middleware.
func (siw *ServerInterfaceWrapper) HandleProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	var params ProcessParams
	var err error

	if params.ID, err = strconv.Atoi(chi.URLParam(r, "id")); err != nil {
		siw.ErrorHandlerFunc(w, r, fmt.Errorf("%w: id must be an integer", errs.ErrInvalidRequest))
		return
	}

	if err = decodeBody(r, &params); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.Handler.HandleProcessWithdrawal(w, r, params)
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
		r.Get(options.BaseURL+"/withdrawals/calculate/{telegramID}", wrapper.HandleQuoteWithdrawal)
		r.Post(options.BaseURL+"/withdrawals/request/{telegramID}", wrapper.HandleCreateWithdrawal)
		r.Get(options.BaseURL+"/withdrawals/user/{telegramID}", wrapper.HandleGetWithdrawals)
		r.Get(options.BaseURL+"/withdrawals/methods", si.HandleGetMethods)
		r.Get(options.BaseURL+"/withdrawals/rules", si.HandleGetRules)
		r.Post(options.BaseURL+"/users/{telegramID}/transfer", wrapper.HandleTransferToCash)
	})

	r.Group(func(r chi.Router) {
		for _, middleware := range options.AdminMiddlewares {
			r.Use(middleware)
		}
		r.Get(options.BaseURL+"/admin/withdrawals/pending", si.HandlePendingWithdrawals)
		r.Post(options.BaseURL+"/admin/withdrawals/{id}/process", wrapper.HandleProcessWithdrawal)
		r.Get(options.BaseURL+"/admin/stats", si.HandleStats)
	})

	return r
}
