package infra

import (
	"context"

	"edge-gateway/middleware/edge/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusStats expõe as decisões do gate como métricas.
// Identidade e path não viram label (cardinalidade).
type PrometheusStats struct {
	decisions *prometheus.CounterVec
}

// NewPrometheusStats registra os coletores em reg (use prometheus.DefaultRegisterer
// em produção e um registry novo nos testes).
func NewPrometheusStats(reg prometheus.Registerer) *PrometheusStats {
	f := promauto.With(reg)
	return &PrometheusStats{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_gate_decisions_total",
				Help: "Total number of request gate decisions by outcome",
			},
			[]string{"outcome", "method"},
		),
	}
}

func (p *PrometheusStats) Record(_ context.Context, ev domain.StatsEvent) error {
	p.decisions.WithLabelValues(ev.Outcome.String(), domain.StatsMethod(ev.Method)).Inc()
	return nil
}
