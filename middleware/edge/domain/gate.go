package domain

// Camada de domínio do gate.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

// Códigos HTTP usados nas decisões. Repetidos aqui para não importar net/http.
const (
	statusOK              = 200
	statusForbidden       = 403
	statusTooManyRequests = 429
)

const (
	MessageOriginRejected = "CORS not allowed"
	MessageIPBlocked      = "Access denied"
	MessageRateLimited    = "Too many requests from this IP, please try again later."
)

// UnknownIdentity é usada quando não há nenhuma informação de endereço do cliente.
const UnknownIdentity Identity = "unknown"

type Identity string

// Request é a visão do gate sobre uma requisição HTTP.
// Origin vazio significa header ausente.
type Request struct {
	Origin   string
	Method   string
	Path     string
	Identity Identity
}

type Outcome int

const (
	Allow Outcome = iota
	RejectOrigin
	RejectBlockedIP
	RejectRateLimited
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RejectOrigin:
		return "reject_origin"
	case RejectBlockedIP:
		return "reject_blocked_ip"
	case RejectRateLimited:
		return "reject_rate_limited"
	default:
		return "unknown"
	}
}

// Status devolve o código HTTP correspondente ao resultado.
func (o Outcome) Status() int {
	switch o {
	case RejectOrigin, RejectBlockedIP:
		return statusForbidden
	case RejectRateLimited:
		return statusTooManyRequests
	default:
		return statusOK
	}
}

// Decision é o resultado de uma avaliação do gate.
type Decision struct {
	Outcome  Outcome
	Status   int
	Message  string
	Identity Identity

	// Window é preenchido quando a requisição passou pela contabilização
	// do rate limit. Nil caso contrário.
	Window *WindowState

	// Err guarda uma falha de infraestrutura tolerada (ex: store fora do ar).
	// A decisão continua válida; o adapter só registra o erro.
	Err error
}

func (d Decision) Allowed() bool { return d.Outcome == Allow }

// CheckOrder define se o bloqueio por IP acontece antes ou depois da
// contabilização do rate limit.
type CheckOrder int

const (
	// OrderBlocklistFirst: IPs bloqueados são rejeitados sem consumir cota.
	OrderBlocklistFirst CheckOrder = iota
	// OrderRateLimitFirst: incrementa o contador e só depois verifica a blocklist.
	OrderRateLimitFirst
)

func (o CheckOrder) String() string {
	if o == OrderRateLimitFirst {
		return "ratelimit-first"
	}
	return "blocklist-first"
}

// ParseCheckOrder aceita "blocklist-first" e "ratelimit-first".
func ParseCheckOrder(s string) (CheckOrder, bool) {
	switch s {
	case "", "blocklist-first":
		return OrderBlocklistFirst, true
	case "ratelimit-first":
		return OrderRateLimitFirst, true
	default:
		return OrderBlocklistFirst, false
	}
}
