package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

const actorKey contextKey = "actor"

// Claims is the bearer token payload. Sub is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate resolves the bearer token into a model.Actor on the request
// context. Requests without a valid token are rejected with UNAUTHORIZED.
func Authenticate(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(secret, log, false)
}

// OptionalAuthenticate lets requests without an Authorization header through
// anonymously. A header that is present must still carry a valid token.
func OptionalAuthenticate(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(secret, log, true)
}

func authenticate(secret string, log *logger.Logger, optional bool) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if optional && r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := actorFromToken(parser, key, r.Header.Get("Authorization"))
			if err != nil {
				log.Ctx(r.Context()).Warn("Authentication failed",
					"path", r.URL.Path,
					"error", err,
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized("Missing or invalid bearer token"))
				return
			}

			ctx := logger.ContextWith(WithActor(r.Context(), actor), "actor_id", actor.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actorFromToken(parser *jwt.Parser, key []byte, header string) (model.Actor, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return model.Actor{}, errors.New("no bearer token")
	}

	var claims Claims
	if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return model.Actor{}, err
	}

	if claims.Subject == "" {
		return model.Actor{}, errors.New("token has no subject")
	}
	role := model.Role(claims.Role)
	switch role {
	case model.RoleMember, model.RoleTrainer, model.RoleStaff, model.RoleAdmin:
	case "":
		role = model.RoleMember
	default:
		return model.Actor{}, errors.New("unknown role " + claims.Role)
	}
	return model.Actor{UserID: claims.Subject, Role: role}, nil
}

// IssueToken signs an HS256 token for actor. Used by tests and local tooling.
func IssueToken(secret string, actor model.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFrom(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

func actorID(r *http.Request) string {
	if actor, ok := ActorFrom(r.Context()); ok {
		return actor.UserID
	}
	return ""
}
