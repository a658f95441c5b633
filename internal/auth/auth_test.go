package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/digitalvishon/taskpay/internal/config"
	"github.com/digitalvishon/taskpay/internal/jwt"
	"github.com/digitalvishon/taskpay/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMiddleware(t *testing.T) {
	cfg := new(config.Config)
	cfg.JWT.SigningKey = "test_secret"
	cfg.JWT.Expiration = time.Hour

	validToken, err := jwt.BuildString(7, cfg.JWT.SigningKey, cfg.JWT.Expiration)
	require.NoError(t, err)

	expiredToken, err := jwt.BuildString(7, cfg.JWT.SigningKey, -time.Hour)
	require.NoError(t, err)

	foreignToken, err := jwt.BuildString(7, "other_secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		wantAdminID string
		wantStatus  int
	}{
		{
			name:        "valid token",
			token:       validToken,
			wantStatus:  http.StatusOK,
			wantAdminID: "7",
		},
		{
			name:       "missing token",
			token:      "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			token:      expiredToken,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong signing key",
			token:      foreignToken,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			token:      "Bearer not.a.jwt",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAdminID string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAdminID = r.Header.Get("X-Admin-ID")
				w.WriteHeader(http.StatusOK)
			})

			handler := Middleware(cfg, logger.NewWithZap(zap.NewNop()))(next)

			r := httptest.NewRequest(http.MethodGet, "/api/admin/stats", http.NoBody)
			if tt.token != "" {
				r.Header.Set("Authorization", tt.token)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, tt.wantAdminID, gotAdminID)
		})
	}
}
