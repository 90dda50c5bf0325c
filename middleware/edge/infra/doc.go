// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryWindowStore: janela fixa por identidade em memória, com janitor e limite LRU
//   - RedisWindowStore: janela fixa atômica no Redis (script Lua)
//   - MemoryStatsStore / RedisStatsStore / PrometheusStats: estatísticas das decisões
//   - SemaphorePool: vagas simultâneas da API (channel com capacidade fixa)
package infra
