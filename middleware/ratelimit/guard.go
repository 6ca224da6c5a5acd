package ratelimit

import (
	"net/http"
	"time"

	"edge-proxy/middleware/ratelimit/application"
	"edge-proxy/middleware/ratelimit/domain"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Service       application.Service
	Stats         domain.StatsStore
	KeyFn         KeyFunc
	TrustedHeader string
	Logger        logrus.FieldLogger
}

// Guard é o ponto de entrada HTTP do rate limit: deriva a chave, pede a
// decisão e registra o evento.
type Guard struct {
	svc    application.Service
	stats  domain.StatsStore
	keyFn  KeyFunc
	logger logrus.FieldLogger
}

func NewGuard(opts Options) *Guard {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.TrustedHeader)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Guard{
		svc:    opts.Service,
		stats:  opts.Stats,
		keyFn:  opts.KeyFn,
		logger: opts.Logger,
	}
}

// Limit devolve o máximo de requisições por janela.
func (g *Guard) Limit() int { return g.svc.Window.Limit }

// Key devolve a identidade do cliente para r.
func (g *Guard) Key(r *http.Request) domain.Key { return g.keyFn(r) }

// Check decide se r pode seguir. Erro do store é devolvido junto com uma
// decisão que libera (fail-open); quem chama escolhe o que fazer.
func (g *Guard) Check(r *http.Request) (domain.Key, domain.Decision, error) {
	key := g.keyFn(r)

	dec, err := g.svc.Decide(r.Context(), key)
	if err != nil {
		dec = domain.Decision{Allowed: true, Limit: g.Limit(), Remaining: g.Limit()}
	}

	if g.stats != nil {
		ev := domain.StatsEvent{
			Key:     key,
			Allowed: dec.Allowed,
			Method:  r.Method,
			Path:    r.URL.Path,
			Origin:  r.Header.Get("Origin"),
			At:      time.Now(),
		}
		if serr := g.stats.Record(r.Context(), ev); serr != nil {
			g.logger.WithError(serr).WithField("client", key).Warn("rate limit stats record failed")
		}
	}
	return key, dec, err
}
