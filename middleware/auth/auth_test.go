package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_RedirectsWhenNotAuthenticated(t *testing.T) {
	var called bool
	h := RequireAuth(Options{
		Authenticator: AuthenticatorFunc(func(*http.Request) (bool, error) { return false, nil }),
	})(okHandler(&called))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/dashboard", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != DefaultSignInPath {
		t.Fatalf("expected redirect to %s, got %q", DefaultSignInPath, got)
	}
	if called {
		t.Fatalf("expected next handler not to be called")
	}
}

func TestRequireAuth_PassesWhenAuthenticated(t *testing.T) {
	var called bool
	h := RequireAuth(Options{
		Authenticator: AuthenticatorFunc(func(*http.Request) (bool, error) { return true, nil }),
	})(okHandler(&called))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/dashboard", nil))

	if w.Code != http.StatusOK || !called {
		t.Fatalf("expected request to reach handler, got %d", w.Code)
	}
}

func TestRequireAuth_FailsClosed(t *testing.T) {
	cases := map[string]Authenticator{
		"error": AuthenticatorFunc(func(*http.Request) (bool, error) { return true, errors.New("session backend down") }),
		"nil":   nil,
	}

	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			var called bool
			h := RequireAuth(Options{Authenticator: a, SignInPath: "/login"})(okHandler(&called))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/dashboard", nil))

			if w.Code != http.StatusTemporaryRedirect || called {
				t.Fatalf("expected redirect, got %d (called=%v)", w.Code, called)
			}
			if got := w.Header().Get("Location"); got != "/login" {
				t.Fatalf("expected redirect to /login, got %q", got)
			}
		})
	}
}

func TestRequireAuth_SignInAndPublicPathsSkipCheck(t *testing.T) {
	deny := AuthenticatorFunc(func(*http.Request) (bool, error) { return false, nil })

	for _, path := range []string{"/sign-in", "/api", "/api/data", "/static/app.js"} {
		var called bool
		h := RequireAuth(Options{
			Authenticator:  deny,
			PublicPrefixes: []string{"/api", "/static/"},
		})(okHandler(&called))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example"+path, nil))
		if w.Code != http.StatusOK || !called {
			t.Fatalf("%s: expected pass-through, got %d", path, w.Code)
		}
	}

	var called bool
	h := RequireAuth(Options{Authenticator: deny, PublicPrefixes: []string{"/api"}})(okHandler(&called))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/apiary", nil))
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected /apiary to require auth, got %d", w.Code)
	}
}
