package wallet

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/internal/models/withdrawal"
)

// Quote a withdrawal fee (GET /api/withdrawals/calculate/{telegramID}).
func (s *Service) HandleQuoteWithdrawal(w http.ResponseWriter, r *http.Request, params QuoteParams) {
	quote, err := s.QuoteWithdrawal(r.Context(), params.TelegramID, params.Amount)
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, quote)
}

// Request a withdrawal (POST /api/withdrawals/request/{telegramID}).
func (s *Service) HandleCreateWithdrawal(w http.ResponseWriter, r *http.Request, params CreateWithdrawalParams) {
	wd, err := s.CreateWithdrawal(r.Context(),
		params.TelegramID, params.Amount, params.Method, params.AccountNumber)
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, r, wd)
}

// Withdrawal history (GET /api/withdrawals/user/{telegramID}).
func (s *Service) HandleGetWithdrawals(w http.ResponseWriter, r *http.Request, params UserParams) {
	withdrawals, err := s.GetWithdrawals(r.Context(), params.TelegramID)
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, withdrawals)
}

// Move earnings into the cash wallet (POST /api/users/{telegramID}/transfer).
func (s *Service) HandleTransferToCash(w http.ResponseWriter, r *http.Request, params TransferParams) {
	u, err := s.TransferToCash(r.Context(), params.TelegramID, params.Amount)
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, u)
}

// Supported payout methods (GET /api/withdrawals/methods).
func (s *Service) HandleGetMethods(w http.ResponseWriter, r *http.Request) {
	type method struct {
		ID        withdrawal.Method `json:"id"`
		Name      string            `json:"name"`
		MinAmount int               `json:"min_amount"`
	}

	writeJSON(w, r, map[string][]method{
		"methods": {
			{ID: withdrawal.BKASH, Name: "bKash", MinAmount: 100},
			{ID: withdrawal.NAGAD, Name: "Nagad", MinAmount: 100},
			{ID: withdrawal.ROCKET, Name: "Rocket", MinAmount: 100},
		},
	})
}

// Withdrawal rules (GET /api/withdrawals/rules).
func (s *Service) HandleGetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"rules": map[string]any{
			"minimum_amount":            MinWithdrawal,
			"amount_multiples":          WithdrawalStep,
			"first_withdrawal_charge":   "10% + 10 fixed fee",
			"regular_withdrawal_charge": "10% only",
			"processing_time":           "24-48 hours",
			"available_methods":         []withdrawal.Method{withdrawal.BKASH, withdrawal.NAGAD, withdrawal.ROCKET},
		},
	})
}

// Admin processing queue (GET /api/admin/withdrawals/pending).
func (s *Service) HandlePendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := s.PendingWithdrawals(r.Context())
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, withdrawals)
}

// Complete or cancel a withdrawal (POST /api/admin/withdrawals/{id}/process).
func (s *Service) HandleProcessWithdrawal(w http.ResponseWriter, r *http.Request, params ProcessParams) {
	wd, err := s.ResolveWithdrawal(r.Context(), params.ID, params.Status, params.AdminNote)
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, wd)
}

// Dashboard counters (GET /api/admin/stats).
func (s *Service) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		ErrorHandlerFunc(w, r, err)
		return
	}

	writeJSON(w, r, stats)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ErrorHandlerFunc(w, r, err)
	}
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
		errors.Is(err, errs.ErrBelowMinimum) ||
		errors.Is(err, errs.ErrWrongMultiple) ||
		errors.Is(err, errs.ErrInvalidStatus):
		code = http.StatusBadRequest

	// Status Payment Required (402).
	case errors.Is(err, errs.ErrNotEnoughFunds):
		code = http.StatusPaymentRequired

	// Status Not Found (404).
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound

	// Status Conflict (409).
	case errors.Is(err, errs.ErrAlreadyProcessed) ||
		errors.Is(err, errs.ErrAlreadyExists):
		code = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err = json.NewEncoder(w).Encode(errJSON); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
