package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/iurnickita/raktkadi/internal/auth/config"
	"github.com/iurnickita/raktkadi/internal/token"
)

type Auth interface {
	Middleware(h http.Handler) http.Handler
}

const cookieActorToken = "raktkadiToken"

type actorKey struct{}

type auth struct {
	cfg config.Config
}

func NewAuth(cfg config.Config) Auth {
	return &auth{cfg: cfg}
}

func (a *auth) Middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// получение id пользователя
		actor, err := a.getActor(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		// передаём управление хендлеру
		h.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// getActor reads the token from the Authorization header, then from the cookie.
func (a *auth) getActor(r *http.Request) (string, error) {
	tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		tokenCookie, err := r.Cookie(cookieActorToken)
		if err != nil {
			return "", token.ErrInvalidToken
		}
		tokenString = tokenCookie.Value
	}
	return token.GetActor(a.cfg.JWTSecret, tokenString)
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the authenticated actor reference, empty outside the middleware.
func Actor(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
