package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

// Key identifica o cliente (normalmente o IP informado pela borda).
type Key string

// UnknownKey é usada quando nenhuma identidade pode ser derivada da requisição.
const UnknownKey Key = "unknown"

// Window é a configuração imutável do limite: no máximo Limit requisições
// dentro de qualquer intervalo de Size.
type Window struct {
	Limit int
	Size  time.Duration
}

// Decision é o resultado de uma checagem.
type Decision struct {
	Allowed bool
	Limit   int
	// Remaining é o orçamento restante depois desta decisão (0 quando bloqueado).
	Remaining int
	// ResetAt só é preenchido quando bloqueado: instante em que o timestamp
	// mais antigo da janela expira.
	ResetAt time.Time
}

// WindowStore guarda o log de timestamps por chave e aplica a janela.
//
// Apply deve ser atômico por chave: ler o log, descartar o que expirou,
// decidir e anexar at acontecem sem que outra chamada para a mesma chave
// observe um estado intermediário. O resultado segue Slide.
// A implementação pode ser um map com mutex (uma instância) ou um script
// executado no servidor Redis (várias instâncias).
type WindowStore interface {
	Apply(ctx context.Context, key Key, at time.Time, w Window) (Decision, error)
}
