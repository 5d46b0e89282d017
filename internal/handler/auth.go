package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pavelanni/tutorquiz/internal/model"
)

var errMissingToken = errors.New("missing bearer token")

// Claims are the token claims issued by the identity service.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// Authenticator verifies HS256 tokens from the identity service.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates an Authenticator. An empty issuer accepts any issuer.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Verify parses and checks a token, returning its claims.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if !model.Role(claims.Role).Valid() {
		return nil, fmt.Errorf("token has unknown role %q", claims.Role)
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return ""
	}
	return fields[1]
}

// requireAuth verifies the bearer token, records the caller in the users
// table and stores the actor in the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.auth.Verify(bearerToken(r))
		if err != nil {
			slog.Warn("rejected token", "path", r.URL.Path, "error", err)
			writeProblem(w, r, http.StatusUnauthorized, "unauthorized", "Unauthorized", "authentication required", nil)
			return
		}

		actor := model.Actor{UserID: claims.Subject, Role: model.Role(claims.Role)}
		err = h.store.TouchUser(r.Context(), model.User{
			ID:          actor.UserID,
			DisplayName: claims.Name,
			Role:        actor.Role,
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("touch user %s: %w", actor.UserID, err))
			return
		}

		ctx := model.ContextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) model.Actor {
	a, _ := model.ActorFromContext(r.Context())
	return a
}
