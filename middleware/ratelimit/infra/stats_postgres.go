package infra

import (
	"context"
	"time"

	"edge-proxy/middleware/ratelimit/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer é o subconjunto de *pgxpool.Pool usado aqui.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const accessLogSchema = `
CREATE TABLE IF NOT EXISTS proxy_access_log (
    id          BIGSERIAL PRIMARY KEY,
    client_key  TEXT        NOT NULL,
    origin      TEXT        NOT NULL DEFAULT '',
    method      TEXT        NOT NULL,
    path        TEXT        NOT NULL,
    allowed     BOOLEAN     NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const insertAccessLog = `
INSERT INTO proxy_access_log (client_key, origin, method, path, allowed, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresStatsStore grava uma linha por decisão do rate limit.
// Útil para auditoria de quem está batendo no limite; não é consultado no caminho
// da requisição.
type PostgresStatsStore struct {
	db Execer
}

func NewPostgresStatsStore(db Execer) *PostgresStatsStore {
	return &PostgresStatsStore{db: db}
}

// EnsureSchema cria a tabela se ainda não existir.
func (s *PostgresStatsStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, accessLogSchema)
	return err
}

func (s *PostgresStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.Exec(ctx, insertAccessLog,
		string(ev.Key),
		ev.Origin,
		ev.Method,
		ev.Path,
		ev.Allowed,
		at.UTC(),
	)
	return err
}
