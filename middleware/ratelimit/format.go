package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"edge-proxy/middleware/ratelimit/domain"
)

// ResetLayout é o ISO-8601 em UTC com milissegundos usado em resetTime e em
// X-RateLimit-Reset.
const ResetLayout = "2006-01-02T15:04:05.000Z"

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// FormatReset formata t com ResetLayout.
func FormatReset(t time.Time) string { return t.UTC().Format(ResetLayout) }

// SetRejectedHeaders escreve o conjunto de headers de uma resposta 429.
func SetRejectedHeaders(h http.Header, dec domain.Decision) {
	h.Set(HeaderLimit, formatInt(dec.Limit))
	h.Set(HeaderRemaining, "0")
	h.Set(HeaderReset, FormatReset(dec.ResetAt))
}

// SetRemainingHeader escreve só o orçamento restante (respostas encaminhadas).
func SetRemainingHeader(h http.Header, dec domain.Decision) {
	h.Set(HeaderRemaining, formatInt(dec.Remaining))
}
