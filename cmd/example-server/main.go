package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edge-gateway/middleware/auth"
	"edge-gateway/middleware/edge"
	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"
)

func main() {
	// Exemplo: gate + headers + login injetados direto no webserver (sem proxy)
	policy, err := domain.NewPolicy(domain.PolicyConfig{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8081"},
		BlockedIPs:     []string{"123.45.67.89"},
	})
	if err != nil {
		log.Fatalf("policy error: %v", err)
	}

	store := infra.NewMemoryWindowStore(15*time.Minute, 100)
	stats := infra.NewMemoryStatsStore()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx)

	secret := []byte(os.Getenv("SESSION_SECRET"))
	if len(secret) == 0 {
		secret = []byte("dev-only-session-secret-0123456789abcdef")
	}
	sessions, err := auth.NewSessionAuthenticator(secret, false)
	if err != nil {
		log.Fatalf("session error: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		_ = sessions.Touch(w, r)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Dashboard</h1><p>hello " + sessions.User(r) + "</p>\n"))
	})
	mux.HandleFunc("GET /sign-in", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<form method="post" action="/sign-in"><input name="user"><button>Sign in</button></form>` + "\n"))
	})
	mux.HandleFunc("POST /sign-in", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.SignIn(w, r, r.FormValue("user")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
	mux.HandleFunc("POST /sign-out", func(w http.ResponseWriter, r *http.Request) {
		_ = sessions.SignOut(w, r)
		http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.Total())
	})

	h := http.Handler(mux)
	h = auth.RequireAuth(auth.Options{
		Authenticator:  sessions,
		PublicPrefixes: []string{"/api"},
	})(h)
	h = edge.APILimits(edge.LimitOptions{MaxBodyBytes: edge.DefaultMaxBodyBytes, Timeout: edge.DefaultRequestTimeout})(h)
	h = edge.Middleware(edge.Options{
		Gate: application.Gate{
			Policy: policy,
			Store:  store,
			// páginas abertas no navegador não mandam Origin em GET
			AllowEmptyOrigin: true,
		},
		Stats:               stats,
		AddRateLimitHeaders: true,
	})(h)
	h = edge.RequestID(h)
	h = edge.SecurityHeaders(policy)(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("example server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
