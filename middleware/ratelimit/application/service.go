package application

import (
	"context"
	"fmt"
	"time"

	"edge-proxy/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit (janela deslizante).
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store  domain.WindowStore
	Window domain.Window
	// Now permite relógio fixo nos testes. Se nil, usa time.Now.
	Now func() time.Time
}

func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Store == nil || s.Window.Limit <= 0 {
		return domain.Decision{Allowed: true, Limit: s.Window.Limit, Remaining: s.Window.Limit}, nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	dec, err := s.Store.Apply(ctx, key, now(), s.Window)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("rate limit store apply for %q: %w", key, err)
	}
	return dec, nil
}
