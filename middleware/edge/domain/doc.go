// Package domain define contratos e tipos de domínio do gate de borda:
// requisição, decisão, política de segurança e janela de rate limit.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
package domain
