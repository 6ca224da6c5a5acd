package proxy

import "fmt"

// ErrorKind classifica cada encerramento do pipeline. Também é o label de
// outcome nas métricas.
type ErrorKind string

const (
	KindOriginRejected      ErrorKind = "origin_rejected"
	KindMethodNotAllowed    ErrorKind = "method_not_allowed"
	KindRateLimited         ErrorKind = "rate_limited"
	KindMalformedBody       ErrorKind = "malformed_body"
	KindMissingField        ErrorKind = "missing_field"
	KindUpstreamUnreachable ErrorKind = "upstream_unreachable"
	// KindUpstreamError é um status não-2xx do upstream, repassado como veio.
	KindUpstreamError ErrorKind = "upstream_error"
)

// RequiredFields são os campos que o corpo precisa ter.
var RequiredFields = []string{"model", "messages"}

// ValidationError é a falha do RequestValidator.
type ValidationError struct {
	Kind     ErrorKind
	Required []string
	Err      error
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("missing required fields %v", e.Required)
	default:
		if e.Err != nil {
			return "invalid JSON in request body: " + e.Err.Error()
		}
		return "invalid JSON in request body"
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError é uma falha de transporte (DNS, conexão, timeout) ao falar com
// o upstream. A mensagem é o texto da causa.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }
