package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"dayplan/internal/model"
)

type contextKey string

var errNoSecret = errors.New("no token secret configured")

const userContextKey contextKey = "user"

// Claims identifies the caller. Tokens are issued elsewhere and only verified here.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// UserEnsurer resolves an authenticated identity to a stored user.
type UserEnsurer interface {
	Ensure(ctx context.Context, id, email, fullName string) (*model.User, error)
}

type AuthMiddleware struct {
	secret []byte
	users  UserEnsurer
	logger *zap.Logger
}

func NewAuthMiddleware(secret string, users UserEnsurer, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), users: users, logger: logger}
}

func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims, err := m.verify(tokenString)
		if errors.Is(err, errNoSecret) {
			m.logger.Error("rejecting request: token secret is empty")
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := m.users.Ensure(r.Context(), claims.Subject, claims.Email, claims.Name)
		if err != nil {
			m.logger.Error("ensure user", zap.String("user_id", claims.Subject), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verify checks an HS256 token. An empty secret rejects every token.
func (m *AuthMiddleware) verify(tokenString string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, errNoSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func userFrom(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}
