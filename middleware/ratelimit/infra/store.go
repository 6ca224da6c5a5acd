package infra

import (
	"context"
	"sync"
	"time"

	"edge-proxy/middleware/ratelimit/domain"
)

// MemoryWindowStore guarda o log de timestamps de cada chave em um map
// protegido por um único mutex. Serve para deploy de uma instância só: o estado
// some quando o processo reinicia.
//
// Chaves cujo log inteiro saiu da janela são removidas por Sweep (ou pelo
// janitor), o que não muda nenhuma decisão: entradas expiradas já não contam.
type MemoryWindowStore struct {
	mu           sync.Mutex
	logs         map[domain.Key][]int64
	window       time.Duration
	cleanupEvery time.Duration
}

type MemoryStoreOption func(*MemoryWindowStore)

func WithCleanupEvery(d time.Duration) MemoryStoreOption {
	return func(s *MemoryWindowStore) { s.cleanupEvery = d }
}

// NewMemoryWindowStore cria o store. window é usado só pela limpeza.
func NewMemoryWindowStore(window time.Duration, opts ...MemoryStoreOption) *MemoryWindowStore {
	s := &MemoryWindowStore{
		logs:         make(map[domain.Key][]int64),
		window:       window,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply implementa domain.WindowStore. Só grava quando a tentativa é admitida.
func (s *MemoryWindowStore) Apply(_ context.Context, key domain.Key, at time.Time, w domain.Window) (domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, dec := domain.Slide(s.logs[key], at.UnixMilli(), w)
	if dec.Allowed {
		s.logs[key] = next
	}
	return dec, nil
}

// Len devolve quantas chaves estão guardadas.
func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// Sweep remove as chaves sem nenhuma entrada dentro da janela em now.
// Retorna quantas foram removidas.
func (s *MemoryWindowStore) Sweep(now time.Time) int {
	at := now.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, log := range s.logs {
		if domain.Expired(log, at, s.window) {
			delete(s.logs, k)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que chama Sweep periodicamente.
// Pare cancelando o contexto.
func (s *MemoryWindowStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Sweep(now)
			}
		}
	}()
}
