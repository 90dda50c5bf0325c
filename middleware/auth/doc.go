// Package auth é a fronteira com a capacidade externa isAuthenticated():
// o gate de páginas pergunta a um Authenticator se o usuário está autenticado
// e, se não estiver (ou se a verificação falhar), redireciona para o login.
//
// A regra é fail closed: erro ou ausência de Authenticator nunca liberam a página.
package auth
