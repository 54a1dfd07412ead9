package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"sms-relay/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// AuthManager mints and checks HS256 bearer tokens.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type SenderClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Mint returns a signed token for subject with the "send" scope.
func (a *AuthManager) Mint(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	now := a.now()
	claims := SenderClaims{
		Scope: "send",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   subject,
			Issuer:    "sms-relay",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*SenderClaims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errMissingToken
	}
	tok := strings.TrimSpace(hdr[7:])
	if tok == "" {
		return nil, errMissingToken
	}
	return a.parse(tok)
}

func (a *AuthManager) parse(tok string) (*SenderClaims, error) {
	claims := &SenderClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !tkn.Valid || claims.Scope != "send" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid bearer token: 401 when it is
// absent, 403 when it does not verify.
func RequireAuth(a *AuthManager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.ParseFromRequest(r)
			switch {
			case errors.Is(err, errMissingToken):
				w.Header().Set("WWW-Authenticate", `Bearer realm="sms-relay"`)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			case err != nil:
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			ctx := logging.WithSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
