package application

import (
	"context"
	"strings"
	"time"

	"edge-gateway/middleware/edge/domain"
)

// DefaultPrefixes são os prefixos de path sujeitos a rate limit e blocklist.
var DefaultPrefixes = []string{"/api"}

// Gate concentra a regra de decisão do gate de borda.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Policy é obrigatória: sem ela toda origem é rejeitada.
// Sem Store, a contabilização de rate limit é pulada.
type Gate struct {
	Policy *domain.Policy
	Store  domain.WindowStore
	Clock  domain.Clock

	// Prefixes limita rate limit e blocklist a alguns paths. A checagem de
	// origem vale para todos. Nil usa DefaultPrefixes.
	Prefixes []string
	Order    domain.CheckOrder

	// RateLimitMessage é o corpo da resposta 429.
	RateLimitMessage string

	// AllowEmptyOrigin deixa passar requisições sem header Origin.
	AllowEmptyOrigin bool
	// ExemptAllowlisted pula a contabilização para IPs da allowlist.
	ExemptAllowlisted bool
}

// Evaluate aplica, em ordem: origem, filtro de path, blocklist/rate limit
// (na ordem de g.Order) e devolve a decisão. A única mutação é o Hit no Store,
// e ela nunca é desfeita.
func (g Gate) Evaluate(ctx context.Context, req domain.Request) domain.Decision {
	id := req.Identity
	if id == "" {
		id = domain.UnknownIdentity
	}

	if !g.originAllowed(req.Origin) {
		return reject(domain.RejectOrigin, domain.MessageOriginRejected, id, nil)
	}

	if !g.gated(req.Path) {
		return allow(id, nil, nil)
	}

	blocked := g.Policy.Blocked(id)
	if blocked && g.Order == domain.OrderBlocklistFirst {
		return reject(domain.RejectBlockedIP, domain.MessageIPBlocked, id, nil)
	}

	var win *domain.WindowState
	var storeErr error
	if g.Store != nil && !(g.ExemptAllowlisted && g.Policy.Allowlisted(id)) {
		st, err := g.Store.Hit(ctx, id, g.now())
		if err != nil {
			// falha no store: segue sem rate limit (fail open)
			storeErr = err
		} else {
			win = &st
			if st.Exceeded() {
				return reject(domain.RejectRateLimited, g.rateLimitMessage(), id, win)
			}
		}
	}

	if blocked {
		d := reject(domain.RejectBlockedIP, domain.MessageIPBlocked, id, win)
		d.Err = storeErr
		return d
	}
	return allow(id, win, storeErr)
}

func (g Gate) originAllowed(origin string) bool {
	if g.Policy == nil {
		return false
	}
	if origin == "" && g.AllowEmptyOrigin {
		return true
	}
	return g.Policy.OriginAllowed(origin)
}

func (g Gate) gated(path string) bool {
	prefixes := g.Prefixes
	if prefixes == nil {
		prefixes = DefaultPrefixes
	}
	for _, p := range prefixes {
		if MatchPrefix(path, p) {
			return true
		}
	}
	return false
}

// MatchPrefix compara por segmento: "/api" casa "/api" e "/api/x", mas não "/apiary".
func MatchPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func (g Gate) now() time.Time {
	if g.Clock == nil {
		return domain.SystemClock.Now()
	}
	return g.Clock.Now()
}

func (g Gate) rateLimitMessage() string {
	if g.RateLimitMessage == "" {
		return domain.MessageRateLimited
	}
	return g.RateLimitMessage
}

func allow(id domain.Identity, win *domain.WindowState, err error) domain.Decision {
	return domain.Decision{
		Outcome:  domain.Allow,
		Status:   domain.Allow.Status(),
		Identity: id,
		Window:   win,
		Err:      err,
	}
}

func reject(o domain.Outcome, msg string, id domain.Identity, win *domain.WindowState) domain.Decision {
	return domain.Decision{
		Outcome:  o,
		Status:   o.Status(),
		Message:  msg,
		Identity: id,
		Window:   win,
	}
}
