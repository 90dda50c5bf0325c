package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	SessionCookieName = "edge_session"

	sessionKeyUser       = "auth_user"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
)

var (
	DefaultMaxLifetime = 12 * time.Hour
	DefaultIdleTimeout = 30 * time.Minute
)

// SessionAuthenticator implementa Authenticator sobre uma sessão em cookie
// assinado, com duração máxima e timeout por inatividade.
type SessionAuthenticator struct {
	store       sessions.Store
	name        string
	maxLifetime time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

type SessionOption func(*SessionAuthenticator)

func WithMaxLifetime(d time.Duration) SessionOption {
	return func(a *SessionAuthenticator) { a.maxLifetime = d }
}

func WithIdleTimeout(d time.Duration) SessionOption {
	return func(a *SessionAuthenticator) { a.idleTimeout = d }
}

func WithNow(now func() time.Time) SessionOption {
	return func(a *SessionAuthenticator) { a.now = now }
}

// NewSessionAuthenticator cria o autenticador com um CookieStore assinado por secret.
func NewSessionAuthenticator(secret []byte, secure bool, opts ...SessionOption) (*SessionAuthenticator, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must have at least 32 bytes")
	}

	a := &SessionAuthenticator{
		name:        SessionCookieName,
		maxLifetime: DefaultMaxLifetime,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(a.maxLifetime.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
	a.store = cs
	return a, nil
}

// IsAuthenticated implementa Authenticator. Não escreve nada na resposta.
func (a *SessionAuthenticator) IsAuthenticated(r *http.Request) (bool, error) {
	s, err := a.store.Get(r, a.name)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	user, ok := s.Values[sessionKeyUser].(string)
	if !ok || user == "" {
		return false, nil
	}

	now := a.now()
	issuedAt := readUnix(s.Values[sessionKeyIssuedAt])
	if issuedAt.IsZero() || now.Sub(issuedAt) > a.maxLifetime {
		return false, nil
	}
	lastActive := readUnix(s.Values[sessionKeyLastActive])
	if lastActive.IsZero() || now.Sub(lastActive) > a.idleTimeout {
		return false, nil
	}
	return true, nil
}

// User devolve o usuário da sessão, ou "" se não houver.
func (a *SessionAuthenticator) User(r *http.Request) string {
	s, err := a.store.Get(r, a.name)
	if err != nil {
		return ""
	}
	user, _ := s.Values[sessionKeyUser].(string)
	return user
}

func (a *SessionAuthenticator) SignIn(w http.ResponseWriter, r *http.Request, user string) error {
	if user == "" {
		return errors.New("empty user")
	}
	// erro aqui é cookie inválido/antigo: começa uma sessão nova
	s, _ := a.store.Get(r, a.name)
	now := a.now().Unix()
	s.Values[sessionKeyUser] = user
	s.Values[sessionKeyIssuedAt] = now
	s.Values[sessionKeyLastActive] = now
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Touch renova a última atividade de uma sessão válida.
func (a *SessionAuthenticator) Touch(w http.ResponseWriter, r *http.Request) error {
	ok, err := a.IsAuthenticated(r)
	if err != nil || !ok {
		return err
	}
	s, err := a.store.Get(r, a.name)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	s.Values[sessionKeyLastActive] = a.now().Unix()
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (a *SessionAuthenticator) SignOut(w http.ResponseWriter, r *http.Request) error {
	s, _ := a.store.Get(r, a.name)
	s.Values = make(map[interface{}]interface{})
	s.Options.MaxAge = -1
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
