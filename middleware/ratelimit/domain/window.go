package domain

import "time"

// Slide aplica a transição da janela deslizante sobre log no instante now.
//
// Entradas com idade >= size são descartadas (a janela é exclusiva no lado
// antigo). Se o que sobra já atingiu o limite, a tentativa é recusada e o log
// não deve ser persistido; caso contrário now é anexado.
func Slide(log []int64, now int64, w Window) (next []int64, dec Decision) {
	size := w.Size.Milliseconds()

	next = make([]int64, 0, len(log)+1)
	for _, ts := range log {
		if now-ts < size {
			next = append(next, ts)
		}
	}

	dec.Limit = w.Limit
	if len(next) >= w.Limit {
		oldest := next[0]
		for _, ts := range next[1:] {
			if ts < oldest {
				oldest = ts
			}
		}
		dec.ResetAt = time.UnixMilli(oldest + size).UTC()
		return nil, dec
	}

	next = append(next, now)
	dec.Allowed = true
	dec.Remaining = w.Limit - len(next)
	return next, dec
}

// Expired informa se nenhuma entrada de log ainda conta para a janela.
func Expired(log []int64, now int64, size time.Duration) bool {
	limit := size.Milliseconds()
	for _, ts := range log {
		if now-ts < limit {
			return false
		}
	}
	return true
}
