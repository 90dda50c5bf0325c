// Package application contém o caso de uso do gate de borda: dada uma
// requisição e a política de segurança, produzir exatamente uma decisão.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Gate.Evaluate(ctx, req) retorna uma Decision (allow/reject + status/mensagem).
package application
