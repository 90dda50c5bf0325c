package edge

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"

	"golang.org/x/time/rate"
)

type Options struct {
	Gate                application.Gate
	Stats               domain.StatsStore
	IdentityFn          IdentityFunc
	ClientIPHeader      string
	TrustXForwardedFor  bool
	AddRateLimitHeaders bool
	CORS                CORSOptions
	Logger              *slog.Logger

	// RejectLogEvery limita os logs de rejeição a um por intervalo (além dos
	// primeiros). 0 usa 1s.
	RejectLogEvery time.Duration
}

// Middleware aplica o gate a toda requisição: 403 para origem não permitida ou
// IP bloqueado, 429 para rate limit, e segue para next caso contrário.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.IdentityFn == nil {
		opts.IdentityFn = DefaultIdentityFunc(opts.ClientIPHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RejectLogEvery <= 0 {
		opts.RejectLogEvery = time.Second
	}
	if opts.CORS.AllowedMethods == nil && opts.CORS.AllowedHeaders == nil {
		cors := DefaultCORSOptions()
		cors.AllowCredentials = opts.CORS.AllowCredentials
		cors.MaxAge = opts.CORS.MaxAge
		opts.CORS = cors
	}

	// em ataque, um log por rejeição vira outro problema
	rejectLog := &rate.Sometimes{First: 10, Interval: opts.RejectLogEvery}
	clock := opts.Gate.Clock
	if clock == nil {
		clock = domain.SystemClock
	}
	prefixes := opts.Gate.Prefixes
	if prefixes == nil {
		prefixes = application.DefaultPrefixes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			req := domain.Request{
				Origin:   origin,
				Method:   r.Method,
				Path:     r.URL.Path,
				Identity: opts.IdentityFn(r),
			}

			dec := opts.Gate.Evaluate(r.Context(), req)
			log := opts.Logger.With(
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("identity", string(dec.Identity)),
				slog.String("path", req.Path),
			)
			if dec.Err != nil {
				log.Warn("rate limit store unavailable, request not counted", slog.Any("error", dec.Err))
			}

			if opts.Stats != nil {
				if err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Identity: dec.Identity,
					Outcome:  dec.Outcome,
					Method:   domain.StatsMethod(r.Method),
					Path:     routeLabel(req.Path, prefixes),
					At:       clock.Now(),
				}); err != nil {
					log.Debug("gate stats record failed", slog.Any("error", err))
				}
			}

			if opts.AddRateLimitHeaders && dec.Window != nil {
				writeRateLimitHeaders(w, *dec.Window, clock.Now())
			}

			if !dec.Allowed() {
				if dec.Outcome == domain.RejectRateLimited && dec.Window != nil {
					w.Header().Set("Retry-After", formatInt64(ceilSeconds(dec.Window.ResetAt().Sub(clock.Now()))))
				}
				rejectLog.Do(func() {
					log.Info("request rejected",
						slog.String("outcome", dec.Outcome.String()),
						slog.Int("status", dec.Status),
						slog.String("origin", origin),
					)
				})
				http.Error(w, dec.Message, dec.Status)
				return
			}

			if opts.CORS.writeCORS(w, r, origin) {
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// routeLabel devolve o prefixo do gate que casa com path, ou domain.OtherLabel.
// Path cru não entra nas estatísticas.
func routeLabel(path string, prefixes []string) string {
	for _, p := range prefixes {
		if application.MatchPrefix(path, p) {
			if p = strings.TrimRight(p, "/"); p == "" {
				return "/"
			}
			return p
		}
	}
	return domain.OtherLabel
}

// writeRateLimitHeaders segue o draft IETF "RateLimit header fields".
func writeRateLimitHeaders(w http.ResponseWriter, win domain.WindowState, now time.Time) {
	h := w.Header()
	h.Set("RateLimit-Policy", formatInt64(win.Max)+";w="+formatInt64(int64(win.Duration/time.Second)))
	h.Set("RateLimit-Limit", formatInt64(win.Max))
	h.Set("RateLimit-Remaining", formatInt64(win.Remaining()))
	h.Set("RateLimit-Reset", formatInt64(ceilSeconds(win.ResetAt().Sub(now))))
}
