package edge

import (
	"net/http"

	"edge-gateway/middleware/edge/domain"
)

// SecurityHeaders carimba os headers da política (incluindo o CSP) em toda
// resposta. Os valores são gravados de novo no momento em que o status é
// escrito, sobrescrevendo o que o handler interno ou o upstream do proxy
// tenha colocado. Deve ser o middleware mais externo para cobrir também as
// rejeições do gate.
func SecurityHeaders(policy *domain.Policy) func(next http.Handler) http.Handler {
	headers := policy.ResponseHeaders()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &securityWriter{ResponseWriter: w, headers: headers}
			sw.stamp()
			next.ServeHTTP(sw, r)
			// handler que não escreveu nada: o net/http manda 200 com estes headers
			if !sw.wroteHeader {
				sw.stamp()
			}
		})
	}
}

type securityWriter struct {
	http.ResponseWriter
	headers     []domain.Header
	wroteHeader bool
}

func (w *securityWriter) stamp() {
	h := w.ResponseWriter.Header()
	for _, kv := range w.headers {
		h.Set(kv.Name, kv.Value)
	}
}

func (w *securityWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.stamp()
		// 1xx informativo não fecha os headers (exceto 101)
		if code >= http.StatusOK || code == http.StatusSwitchingProtocols {
			w.wroteHeader = true
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *securityWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush mantém streaming (SSE) funcionando atrás do wrapper.
func (w *securityWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

// Unwrap permite que http.ResponseController alcance o writer original.
func (w *securityWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
