package infra

import (
	"context"
	"sync"
)

// ChanPool é um semáforo baseado em channel que limita chamadas em voo.
// Implementa domain.SlotPool.
type ChanPool struct {
	sem chan struct{}
}

// NewChanPool cria um pool com capacidade max.
func NewChanPool(max int) *ChanPool {
	return &ChanPool{sem: make(chan struct{}, max)}
}

// Acquire espera por uma vaga ou pelo fim do ctx. Chamar release mais de uma
// vez não devolve vagas extras.
func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-p.sem }) }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InFlight devolve quantas vagas estão ocupadas agora.
func (p *ChanPool) InFlight() int { return len(p.sem) }

// Cap devolve a capacidade total.
func (p *ChanPool) Cap() int { return cap(p.sem) }
