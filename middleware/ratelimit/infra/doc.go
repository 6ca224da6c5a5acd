// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryWindowStore: log de timestamps por chave em memória, com janitor
//   - RedisWindowStore: mesmo log em uma lista Redis, para várias instâncias
//   - Memory/Redis/PostgresStatsStore: estatísticas de decisão
//   - ChanPool: semáforo simples para limite de concorrência
package infra
