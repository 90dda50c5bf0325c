package domain

import (
	"fmt"
	"net/netip"
	"strings"
)

// Header é um par nome/valor de resposta.
type Header struct {
	Name  string
	Value string
}

// Directive é uma diretiva de Content-Security-Policy com suas fontes.
type Directive struct {
	Name    string
	Sources []string
}

// CSPDirectiveOrder é a ordem fixa em que as diretivas conhecidas aparecem no header.
var CSPDirectiveOrder = []string{
	"default-src",
	"script-src",
	"style-src",
	"img-src",
	"connect-src",
	"font-src",
}

const (
	HeaderContentSecurityPolicy = "Content-Security-Policy"
	DefaultAllowedOrigin        = "http://localhost:3000"
)

func DefaultHeaders() []Header {
	return []Header{
		{Name: "X-Frame-Options", Value: "DENY"},
		{Name: "X-Content-Type-Options", Value: "nosniff"},
		{Name: "X-XSS-Protection", Value: "1; mode=block"},
		{Name: "Referrer-Policy", Value: "strict-origin-when-cross-origin"},
		{Name: "Strict-Transport-Security", Value: "max-age=31536000; includeSubDomains; preload"},
	}
}

func DefaultCSP() []Directive {
	return []Directive{
		{Name: "default-src", Sources: []string{"'self'"}},
		{Name: "script-src", Sources: []string{"'self'", "'unsafe-inline'", "'unsafe-eval'", "https://*.googleapis.com", "https://*.gstatic.com"}},
		{Name: "style-src", Sources: []string{"'self'", "'unsafe-inline'", "https://fonts.googleapis.com"}},
		{Name: "img-src", Sources: []string{"'self'", "data:"}},
		{Name: "connect-src", Sources: []string{"'self'", "https://*.firebaseio.com", "https://*.googleapis.com"}},
		{Name: "font-src", Sources: []string{"'self'", "https://fonts.gstatic.com"}},
	}
}

// PolicyConfig é a entrada de NewPolicy. Headers/CSP nil usam os padrões;
// AllowedOrigins nil usa DefaultAllowedOrigin.
type PolicyConfig struct {
	AllowedOrigins []string
	BlockedIPs     []string
	AllowlistIPs   []string
	Headers        []Header
	CSP            []Directive
}

// Policy é a política de segurança do processo. Imutável depois de NewPolicy;
// pode ser compartilhada entre goroutines sem sincronização.
type Policy struct {
	origins   map[string]struct{}
	blocked   ipSet
	allowlist ipSet

	headers []Header
	csp     string
}

func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	origins := cfg.AllowedOrigins
	if origins == nil {
		origins = []string{DefaultAllowedOrigin}
	}
	p := &Policy{origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		p.origins[strings.TrimSpace(o)] = struct{}{}
	}

	var err error
	if p.blocked, err = newIPSet(cfg.BlockedIPs); err != nil {
		return nil, fmt.Errorf("blocked ips: %w", err)
	}
	if p.allowlist, err = newIPSet(cfg.AllowlistIPs); err != nil {
		return nil, fmt.Errorf("allowlist ips: %w", err)
	}

	headers := cfg.Headers
	if headers == nil {
		headers = DefaultHeaders()
	}
	p.headers = make([]Header, 0, len(headers))
	for _, h := range headers {
		if strings.EqualFold(h.Name, HeaderContentSecurityPolicy) {
			continue
		}
		p.headers = append(p.headers, h)
	}

	csp := cfg.CSP
	if csp == nil {
		csp = DefaultCSP()
	}
	p.csp = BuildCSP(csp)
	return p, nil
}

// BuildCSP monta o valor do header: "<diretiva> <fontes>;" separados por espaço,
// na ordem de CSPDirectiveOrder. Diretivas fora dessa lista entram no final, na
// ordem em que apareceram. Diretivas sem fontes são ignoradas; repetidas, vale a última.
func BuildCSP(directives []Directive) string {
	sources := make(map[string][]string, len(directives))
	var extra []string
	known := make(map[string]bool, len(CSPDirectiveOrder))
	for _, name := range CSPDirectiveOrder {
		known[name] = true
	}
	for _, d := range directives {
		name := strings.ToLower(strings.TrimSpace(d.Name))
		if name == "" {
			continue
		}
		if _, seen := sources[name]; !seen && !known[name] {
			extra = append(extra, name)
		}
		sources[name] = d.Sources
	}

	parts := make([]string, 0, len(sources))
	for _, name := range append(append([]string{}, CSPDirectiveOrder...), extra...) {
		src := sources[name]
		if len(src) == 0 {
			continue
		}
		parts = append(parts, name+" "+strings.Join(src, " ")+";")
	}
	return strings.Join(parts, " ")
}

func (p *Policy) OriginAllowed(origin string) bool {
	_, ok := p.origins[origin]
	return ok
}

// AllowedOrigins devolve as origens permitidas (cópia, sem ordem definida).
func (p *Policy) AllowedOrigins() []string {
	out := make([]string, 0, len(p.origins))
	for o := range p.origins {
		out = append(out, o)
	}
	return out
}

func (p *Policy) Blocked(id Identity) bool { return p.blocked.contains(string(id)) }

func (p *Policy) Allowlisted(id Identity) bool { return p.allowlist.contains(string(id)) }

// ContentSecurityPolicy devolve o valor pré-montado do header CSP.
func (p *Policy) ContentSecurityPolicy() string { return p.csp }

// ResponseHeaders devolve os headers de segurança, com o CSP por último.
func (p *Policy) ResponseHeaders() []Header {
	out := make([]Header, 0, len(p.headers)+1)
	out = append(out, p.headers...)
	if p.csp != "" {
		out = append(out, Header{Name: HeaderContentSecurityPolicy, Value: p.csp})
	}
	return out
}

// ipSet aceita IPs exatos, prefixos CIDR e, como fallback, strings literais
// (ex: "unknown").
type ipSet struct {
	exact    map[string]struct{}
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
}

func newIPSet(entries []string) (ipSet, error) {
	s := ipSet{
		exact: make(map[string]struct{}),
		addrs: make(map[netip.Addr]struct{}),
	}
	for _, raw := range entries {
		e := strings.TrimSpace(raw)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			pfx, err := netip.ParsePrefix(e)
			if err != nil {
				return ipSet{}, fmt.Errorf("invalid prefix %q: %w", e, err)
			}
			s.prefixes = append(s.prefixes, pfx.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(e); err == nil {
			s.addrs[addr.Unmap()] = struct{}{}
			continue
		}
		s.exact[e] = struct{}{}
	}
	return s, nil
}

func (s ipSet) contains(v string) bool {
	if _, ok := s.exact[v]; ok {
		return true
	}
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if _, ok := s.addrs[addr]; ok {
		return true
	}
	for _, p := range s.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
