// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela em memória/Redis, stats, semáforo)
//   - ratelimit (este pacote): extração da chave do cliente, Guard e tradução da
//     decisão para headers X-RateLimit-*
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (header confiável da borda ou endereço da conexão)
//  2. Chama a camada application para obter a decisão
//  3. Registra o evento de stats (best-effort)
//  4. O handler do proxy decide o status (429) e monta o corpo
package ratelimit
