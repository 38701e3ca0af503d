// Package auth authenticates the spreadsheet host. The host signs short
// HS256 tokens with a secret shared with this service.
package auth

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/config"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/httputil"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identify the host installation that sent a request
type Claims struct {
	jwt.RegisteredClaims
	Workbook string `json:"workbook,omitempty"`
}

// HostTokens issues and verifies host tokens
type HostTokens struct {
	config *config.AuthConfig
	now    func() time.Time
}

// NewHostTokens creates a token manager
func NewHostTokens(cfg *config.AuthConfig) *HostTokens {
	return &HostTokens{config: cfg, now: time.Now}
}

// Issue signs a token for host, scoped to workbook.
func (h *HostTokens) Issue(host, workbook string) (string, time.Time, error) {
	now := h.now()
	expiry := now.Add(h.config.TokenExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    h.config.Issuer,
			Subject:   host,
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Workbook: workbook,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.config.HostSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// Verify validates a token and returns its claims
func (h *HostTokens) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.config.HostSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.config.Issuer),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.TokenInvalid()
	}
	return claims, nil
}

// Middleware rejects requests without a valid host token. Paths in skip
// are let through, as is everything when auth is disabled.
func (h *HostTokens) Middleware(log *logger.Logger, skip ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.config.Disabled || contains(skip, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Error(w, errors.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputil.Error(w, errors.Unauthorized("invalid authorization header format"))
				return
			}

			claims, err := h.Verify(parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("host token rejected")
				httputil.Error(w, err)
				return
			}

			ctx := httputil.WithHost(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contains(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}
