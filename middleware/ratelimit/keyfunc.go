package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"edge-proxy/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) domain.Key

// DefaultKeyFunc monta a identidade do cliente.
//
// Se trustedHeader estiver configurado, SÓ ele é usado (ex: CF-Connecting-IP,
// que a Cloudflare sempre sobrescreve); ausente, a chave vira "unknown".
// Sem header configurado, usa o host de RemoteAddr.
// X-Forwarded-For nunca é lido: o cliente controla esse valor.
func DefaultKeyFunc(trustedHeader string) KeyFunc {
	trustedHeader = strings.TrimSpace(trustedHeader)
	return func(r *http.Request) domain.Key {
		if trustedHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(trustedHeader)); v != "" {
				return domain.Key(v)
			}
			return domain.UnknownKey
		}

		addr := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
			return domain.Key(host)
		}
		if addr != "" {
			return domain.Key(addr)
		}
		return domain.UnknownKey
	}
}
