package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

const DefaultSignInPath = "/sign-in"

// Authenticator é a capacidade isAuthenticated() fornecida pela aplicação.
type Authenticator interface {
	IsAuthenticated(r *http.Request) (bool, error)
}

type AuthenticatorFunc func(r *http.Request) (bool, error)

func (f AuthenticatorFunc) IsAuthenticated(r *http.Request) (bool, error) { return f(r) }

type Options struct {
	Authenticator Authenticator
	// SignInPath é o destino do redirect e nunca exige autenticação.
	SignInPath string
	// PublicPrefixes não exigem autenticação (ex: "/api", "/static").
	PublicPrefixes []string
	Logger         *slog.Logger
}

// RequireAuth redireciona (307) para o login quando o Authenticator responde
// false ou erro.
func RequireAuth(opts Options) func(next http.Handler) http.Handler {
	if opts.SignInPath == "" {
		opts.SignInPath = DefaultSignInPath
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == opts.SignInPath || isPublic(r.URL.Path, opts.PublicPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			if !authenticated(r, opts) {
				http.Redirect(w, r, opts.SignInPath, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticated(r *http.Request, opts Options) bool {
	if opts.Authenticator == nil {
		return false
	}
	ok, err := opts.Authenticator.IsAuthenticated(r)
	if err != nil {
		opts.Logger.Warn("authentication check failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		return false
	}
	return ok
}

func isPublic(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
