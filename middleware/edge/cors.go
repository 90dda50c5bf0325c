package edge

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSOptions controla os headers CORS devolvidos para origens já aceitas pelo gate.
// A validação da origem em si é feita pelo gate (Policy.OriginAllowed).
type CORSOptions struct {
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	// MaxAge em segundos para cache do preflight. 0 não envia o header.
	MaxAge int
}

func DefaultCORSOptions() CORSOptions {
	return CORSOptions{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// writeCORS escreve os headers para uma origem aceita. Em preflight, responde 204
// e devolve true (a requisição termina aqui).
func (c CORSOptions) writeCORS(w http.ResponseWriter, r *http.Request, origin string) bool {
	h := w.Header()
	h.Add("Vary", "Origin")
	if origin == "" {
		return false
	}
	h.Set("Access-Control-Allow-Origin", origin)
	if c.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}

	if !isPreflight(r) {
		return false
	}
	if len(c.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
	}
	if len(c.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
	}
	if c.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
	w.WriteHeader(http.StatusNoContent)
	return true
}
