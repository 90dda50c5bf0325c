package edge

import (
	"net/http"
	"time"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
)

const (
	DefaultMaxBodyBytes   = 1 << 20 // 1mb
	DefaultRequestTimeout = 30 * time.Second
)

type LimitOptions struct {
	// MaxBodyBytes <= 0 desliga o limite de corpo.
	MaxBodyBytes int64
	// Timeout <= 0 desliga o timeout. Usa http.TimeoutHandler, que guarda a
	// resposta inteira em memória e não suporta Flush nem Hijack: streaming
	// (SSE, chunked longo) e websocket precisam estar em NoTimeoutPrefixes.
	Timeout time.Duration
	// NoTimeoutPrefixes ficam com limite de corpo e vagas, mas sem timeout.
	NoTimeoutPrefixes []string
	// Prefixes onde os limites valem. Nil usa application.DefaultPrefixes.
	Prefixes []string

	// Slots limita as requisições simultâneas na API. Nil desliga.
	Slots domain.SlotPool
	// SlotWait é quanto esperar por uma vaga antes do 503. <= 0 espera até o
	// cliente desistir.
	SlotWait time.Duration
}

// APILimits aplica tamanho máximo de corpo (413), vagas simultâneas (503) e
// tempo máximo de handler (503) nos paths da API.
func APILimits(opts LimitOptions) func(next http.Handler) http.Handler {
	if opts.Prefixes == nil {
		opts.Prefixes = application.DefaultPrefixes
	}

	return func(next http.Handler) http.Handler {
		limited := next
		if opts.Timeout > 0 {
			limited = http.TimeoutHandler(next, opts.Timeout, "request timeout")
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchAny(r.URL.Path, opts.Prefixes) {
				next.ServeHTTP(w, r)
				return
			}

			if opts.MaxBodyBytes > 0 {
				if r.ContentLength > opts.MaxBodyBytes {
					http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				if r.Body != nil {
					r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes)
				}
			}

			release, ok := application.AcquireSlot(r.Context(), opts.Slots, opts.SlotWait)
			if !ok {
				http.Error(w, "server busy", http.StatusServiceUnavailable)
				return
			}
			defer release()

			if matchAny(r.URL.Path, opts.NoTimeoutPrefixes) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if application.MatchPrefix(path, p) {
			return true
		}
	}
	return false
}
