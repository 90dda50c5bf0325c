package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"edge-gateway/middleware/edge"
	"edge-gateway/middleware/edge/domain"

	"github.com/joho/godotenv"
)

type config struct {
	listenAddr  string
	upstreamURL string

	policy           domain.PolicyConfig
	allowEmptyOrigin bool
	exemptAllowlist  bool

	rateWindow   time.Duration
	rateMax      int
	rateMessage  string
	pathPrefixes []string
	checkOrder   domain.CheckOrder

	clientIPHeader string
	trustXFF       bool
	addHeaders     bool

	rateStore         string
	storeMaxEntries   int
	storeCleanupEvery time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	rateStatsEnabled  bool
	rateStatsPrefix   string
	rateStatsTTL      time.Duration
	rateStatsBucket   string
	rateStatsTrackIDs bool

	metricsAddr string

	maxBodyBytes   int64
	requestTimeout time.Duration
	maxInFlight    int
	inFlightWait   time.Duration

	noTimeoutPrefixes []string

	logLevel  string
	logFormat string
}

func readConfig() (config, error) {
	loadEnvFile()

	cfg := config{}
	env := &envReader{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	var file policyFile
	if path := os.Getenv("SECURITY_POLICY_FILE"); path != "" {
		var err error
		if file, err = loadPolicyFile(path); err != nil {
			return config{}, err
		}
	}
	cfg.policy = file.policyConfig()
	// env vence o arquivo
	cfg.policy.AllowedOrigins = getenvList("CORS_ORIGINS", cfg.policy.AllowedOrigins)
	cfg.policy.BlockedIPs = getenvList("BLOCKED_IPS", cfg.policy.BlockedIPs)
	cfg.policy.AllowlistIPs = getenvList("WHITELIST_IPS", cfg.policy.AllowlistIPs)
	if cfg.policy.AllowedOrigins == nil {
		cfg.policy.AllowedOrigins = []string{domain.DefaultAllowedOrigin}
	}
	cfg.allowEmptyOrigin = env.boolDefault("CORS_ALLOW_EMPTY_ORIGIN", false)
	cfg.exemptAllowlist = env.boolDefault("RATE_LIMIT_EXEMPT_WHITELIST", false)

	cfg.rateWindow = env.durationDefault("RATE_LIMIT_WINDOW", 15*time.Minute)
	cfg.rateMax = env.intDefault("RATE_LIMIT_MAX", 100)
	cfg.rateMessage = getenvDefault("RATE_LIMIT_MESSAGE", domain.MessageRateLimited)
	cfg.pathPrefixes = getenvList("GATE_PATH_PREFIXES", []string{"/api"})

	order, ok := domain.ParseCheckOrder(strings.ToLower(strings.TrimSpace(os.Getenv("GATE_CHECK_ORDER"))))
	if !ok {
		return config{}, fmt.Errorf("GATE_CHECK_ORDER must be %q or %q", domain.OrderBlocklistFirst, domain.OrderRateLimitFirst)
	}
	cfg.checkOrder = order

	cfg.clientIPHeader = os.Getenv("CLIENT_IP_HEADER")
	cfg.trustXFF = env.boolDefault("TRUST_XFF", false)
	cfg.addHeaders = env.boolDefault("ADD_RATELIMIT_HEADERS", true)

	cfg.rateStore = strings.ToLower(getenvDefault("RATE_STORE", "memory"))
	cfg.storeMaxEntries = env.intDefault("RATE_STORE_MAX_ENTRIES", 100_000)
	cfg.storeCleanupEvery = env.durationDefault("RATE_STORE_CLEANUP_EVERY", 2*time.Minute)

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = env.intDefault("REDIS_DB", 0)

	cfg.rateStatsEnabled = env.boolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "edge:stats")
	cfg.rateStatsTTL = env.durationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackIDs = env.boolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.metricsAddr = os.Getenv("METRICS_ADDR")

	cfg.maxBodyBytes = env.int64Default("MAX_BODY_BYTES", edge.DefaultMaxBodyBytes)
	cfg.requestTimeout = env.durationDefault("REQUEST_TIMEOUT", edge.DefaultRequestTimeout)
	cfg.maxInFlight = env.intDefault("MAX_IN_FLIGHT", 0)
	cfg.inFlightWait = env.durationDefault("IN_FLIGHT_WAIT", 100*time.Millisecond)
	cfg.noTimeoutPrefixes = getenvList("REQUEST_TIMEOUT_SKIP_PREFIXES", nil)

	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.logFormat = getenvDefault("LOG_FORMAT", "json")

	if err := env.err(); err != nil {
		return config{}, err
	}
	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.rateWindow <= 0 {
		return config{}, errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if cfg.rateMax <= 0 {
		return config{}, errors.New("RATE_LIMIT_MAX must be > 0")
	}
	switch cfg.rateStore {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.redisAddr) == "" {
			return config{}, errors.New("REDIS_ADDR is required when RATE_STORE=redis")
		}
	default:
		return config{}, fmt.Errorf("RATE_STORE must be memory or redis, got %q", cfg.rateStore)
	}
	if cfg.rateStatsEnabled && strings.TrimSpace(cfg.redisAddr) == "" {
		return config{}, errors.New("REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if cfg.maxInFlight < 0 {
		return config{}, errors.New("MAX_IN_FLIGHT must be >= 0")
	}
	if cfg.storeMaxEntries < 0 {
		return config{}, errors.New("RATE_STORE_MAX_ENTRIES must be >= 0")
	}
	return cfg, nil
}

// loadEnvFile carrega .env.local do diretório atual ou do pai, se existir.
// Variáveis já definidas no ambiente não são sobrescritas.
func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}
	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

func (c config) needsRedis() bool {
	return c.rateStore == "redis" || c.rateStatsEnabled
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvList separa por vírgula, descartando itens vazios.
func getenvList(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envReader lê valores tipados do ambiente. Valor ausente usa o padrão;
// valor presente e inválido vira erro de configuração.
type envReader struct {
	errs []error
}

func (e *envReader) invalid(k, v, kind string) {
	e.errs = append(e.errs, fmt.Errorf("%s: invalid %s %q", k, kind, v))
}

func (e *envReader) err() error { return errors.Join(e.errs...) }

func (e *envReader) intDefault(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(k, v, "integer")
		return def
	}
	return i
}

func (e *envReader) int64Default(k string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.invalid(k, v, "integer")
		return def
	}
	return i
}

func (e *envReader) boolDefault(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(k, v, "boolean")
		return def
	}
	return b
}

func (e *envReader) durationDefault(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.invalid(k, v, "duration")
		return def
	}
	return d
}
