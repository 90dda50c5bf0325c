package edge

import (
	"net"
	"net/http"
	"strings"

	"edge-gateway/middleware/edge/domain"
)

// IdentityFunc extrai a identidade usada como chave do rate limit.
type IdentityFunc func(r *http.Request) domain.Identity

// DefaultIdentityFunc resolve a identidade nesta ordem:
//
//  1. clientIPHeader (ex: X-Real-IP preenchido pela plataforma), se configurado
//  2. primeiro IP do X-Forwarded-For, se trustXFF
//  3. host do RemoteAddr
//  4. "unknown"
//
// Com trustXFF o primeiro IP do X-Forwarded-For vence o endereço da conexão,
// ao contrário da ordem "endereço confiável da conexão primeiro". Atrás de um
// balanceador o RemoteAddr é sempre o do balanceador, então ele só serve de
// fallback. Só ligue trustXFF quando o proxy na frente sobrescreve o header;
// caso contrário o cliente escolhe a própria identidade.
func DefaultIdentityFunc(clientIPHeader string, trustXFF bool) IdentityFunc {
	return func(r *http.Request) domain.Identity {
		if clientIPHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(clientIPHeader)); v != "" {
				return domain.Identity(v)
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return domain.Identity(ip)
				}
			}
		}

		// fallback: RemoteAddr
		addr := strings.TrimSpace(r.RemoteAddr)
		host, _, err := net.SplitHostPort(addr)
		if err == nil && host != "" {
			return domain.Identity(host)
		}
		if addr != "" {
			return domain.Identity(addr)
		}
		return domain.UnknownIdentity
	}
}
