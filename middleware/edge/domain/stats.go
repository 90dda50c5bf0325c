package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do gate.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Identity/Path sem controle
// pode explodir o número de séries/chaves em uma base como Redis/Prometheus).
type StatsEvent struct {
	Identity Identity
	Outcome  Outcome

	Method string
	// Path é o rótulo da rota (prefixo do gate ou OtherLabel), não o path cru.
	Path string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do gate.
//
// O middleware trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// OtherLabel agrupa valores fora do conjunto conhecido (métodos, rotas,
// identidades além do limite).
const OtherLabel = "other"

var statsMethods = map[string]struct{}{
	"GET": {}, "HEAD": {}, "POST": {}, "PUT": {}, "PATCH": {},
	"DELETE": {}, "OPTIONS": {}, "CONNECT": {}, "TRACE": {},
}

// StatsMethod devolve o método se for um dos métodos HTTP padrão e OtherLabel
// caso contrário. O método vem do cliente e não pode virar chave livre.
func StatsMethod(m string) string {
	if _, ok := statsMethods[m]; ok {
		return m
	}
	return OtherLabel
}
