package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/digitalvishon/taskpay/internal/config"
	"github.com/digitalvishon/taskpay/internal/jwt"
	"github.com/digitalvishon/taskpay/internal/models/errs"
	"github.com/digitalvishon/taskpay/pkg/logger"
)

// Middleware guards admin routes. It validates the Bearer token from
// the Authorization header; issuing tokens happens out of band
// (cmd/admintoken).
func Middleware(cfg *config.Config, logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		f := func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" {
				unauthorized(w, fmt.Errorf("%w: missing authorization token", errs.ErrUnauthorized))
				return
			}

			adminID, err := jwt.GetAdminID(token, cfg.JWT.SigningKey)
			if err != nil {
				logger.Debugf("reject admin token: %s", err)
				unauthorized(w, fmt.Errorf("%w: invalid authorization token", errs.ErrUnauthorized))
				return
			}

			r.Header.Set("X-Admin-ID", fmt.Sprint(adminID))

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(f)
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	errJSON := errs.JSON{Code: errs.Code(err), Error: err.Error()}
	if err = json.NewEncoder(w).Encode(errJSON); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
