// Upstream mínimo para validar o gateway na mão:
//
//	UPSTREAM_URL=http://localhost:8081 go run ./cmd/gateway
//	curl -H 'Origin: http://localhost:3000' localhost:8080/api/data
package main

import (
	"fmt"
	"log"
	"net/http"
)

func main() {
	http.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"ok":true,"forwarded_for":%q}`+"\n", r.Header.Get("X-Forwarded-For"))
		log.Printf("api hit from %s (request id %s)", r.RemoteAddr, r.Header.Get("X-Request-ID"))
	})
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>Tela do Sistema</h1><p>Requisição recebida com sucesso!</p>")
	})
	log.Println("upstream rodando em http://localhost:8081")
	if err := http.ListenAndServe(":8081", nil); err != nil {
		log.Fatalf("erro ao subir o servidor: %s", err)
	}
}
