package domain

import "context"

// SlotPool limita quantas requisições da API ficam em andamento ao mesmo tempo.
//
// Acquire bloqueia até haver vaga ou o ctx encerrar. O release devolvido deve
// ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
