package ratelimit

import (
	"net/http"
	"time"

	"edge-proxy/middleware/ratelimit/application"
	"edge-proxy/middleware/ratelimit/domain"
	"edge-proxy/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// OnReject, se definido, é chamado a cada requisição recusada.
	OnReject func(r *http.Request)
	// Skip deixa passar sem ocupar vaga as requisições para as quais devolve true.
	Skip func(r *http.Request) bool
	// Pool substitui o semáforo interno (criado com Max vagas quando nil).
	Pool domain.SlotPool
}

// ConcurrencyMiddleware limita quantas chamadas ficam em voo ao mesmo tempo.
// Max <= 0 sem Pool desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil && opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	if opts.Pool == nil {
		opts.Pool = infra.NewChanPool(opts.Max)
	}
	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Skip != nil && opts.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			release, ok := svc.Acquire(r.Context())
			if !ok {
				if opts.OnReject != nil {
					opts.OnReject(r)
				}
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
