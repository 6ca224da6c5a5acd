// Package origin valida a origem declarada da requisição e monta os headers CORS.
//
// A comparação é exata: nada de wildcard nem de subdomínio.
package origin

import (
	"net/http"
	"strings"
)

const (
	AllowMethods = "POST, OPTIONS"
	AllowHeaders = "Content-Type"
	MaxAge       = "86400"
)

// Guard guarda o conjunto de origens permitidas. Imutável depois de criado.
type Guard struct {
	allowed map[string]struct{}
}

// NewGuard cria o guard. Entradas vazias são ignoradas: requisição sem Origin
// nunca é aceita.
func NewGuard(origins []string) *Guard {
	g := &Guard{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		g.allowed[o] = struct{}{}
	}
	return g
}

// Allowed informa se origin está na lista.
func (g *Guard) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := g.allowed[origin]
	return ok
}

// Headers devolve os headers CORS ligados a origin, ou ok=false se a origem
// não é permitida.
func (g *Guard) Headers(origin string) (h http.Header, ok bool) {
	if !g.Allowed(origin) {
		return nil, false
	}
	h = make(http.Header, 4)
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
	h.Set("Access-Control-Max-Age", MaxAge)
	return h, true
}

// Origins devolve a lista configurada (ordem não garantida).
func (g *Guard) Origins() []string {
	out := make([]string, 0, len(g.allowed))
	for o := range g.allowed {
		out = append(out, o)
	}
	return out
}

// Apply copia src sobre dst, sobrescrevendo chaves iguais e mantendo as demais.
func Apply(dst, src http.Header) {
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
}
