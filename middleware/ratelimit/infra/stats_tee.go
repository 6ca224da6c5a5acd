package infra

import (
	"context"
	"errors"

	"edge-proxy/middleware/ratelimit/domain"
)

// TeeStats repassa cada evento para todos os stores e junta os erros.
type TeeStats []domain.StatsStore

func (t TeeStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range t {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
