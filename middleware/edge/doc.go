// Package edge fornece adapters HTTP (net/http) para o gate de borda:
// validação de origem, blocklist de IP, rate limit por janela fixa e headers
// de segurança.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: caso de uso Gate.Evaluate (decisão allow/reject) sem net/http
//   - infra: implementações concretas (janela em memória/Redis, estatísticas)
//   - edge (este pacote): middlewares HTTP + extração de identidade + tradução para status/headers
//
// Ordem recomendada da cadeia (de fora para dentro):
//
//  1. SecurityHeaders: carimba os headers da política em toda resposta
//  2. RequestID: correlação de logs
//  3. Middleware: origem, blocklist, rate limit (403/429 ou segue)
//  4. APILimits: tamanho máximo do corpo, vagas simultâneas e timeout nos paths da API
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como CORS_ORIGINS, BLOCKED_IPS, RATE_LIMIT_WINDOW e RATE_LIMIT_MAX.
package edge
