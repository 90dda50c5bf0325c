package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"edge-gateway/middleware/edge/domain"

	"gopkg.in/yaml.v3"
)

// policyFile é o formato YAML opcional de SECURITY_POLICY_FILE.
//
//	allowed_origins: [https://app.example.com]
//	blocked_ips: [203.0.113.7, 198.51.100.0/24]
//	headers:
//	  - {name: X-Frame-Options, value: DENY}
//	csp:
//	  - {directive: default-src, sources: ["'self'"]}
type policyFile struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	BlockedIPs     []string `yaml:"blocked_ips"`
	AllowlistIPs   []string `yaml:"allowlist_ips"`
	Headers        []struct {
		Name  string `yaml:"name"`
		Value string `yaml:"value"`
	} `yaml:"headers"`
	CSP []struct {
		Directive string   `yaml:"directive"`
		Sources   []string `yaml:"sources"`
	} `yaml:"csp"`
}

func loadPolicyFile(path string) (policyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return policyFile{}, fmt.Errorf("read policy file: %w", err)
	}

	var f policyFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return policyFile{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return f, nil
}

// policyConfig converte o arquivo; campos ausentes ficam nil (usam o padrão).
func (f policyFile) policyConfig() domain.PolicyConfig {
	cfg := domain.PolicyConfig{
		AllowedOrigins: f.AllowedOrigins,
		BlockedIPs:     f.BlockedIPs,
		AllowlistIPs:   f.AllowlistIPs,
	}
	if f.Headers != nil {
		cfg.Headers = make([]domain.Header, 0, len(f.Headers))
		for _, h := range f.Headers {
			cfg.Headers = append(cfg.Headers, domain.Header{Name: h.Name, Value: h.Value})
		}
	}
	if f.CSP != nil {
		cfg.CSP = make([]domain.Directive, 0, len(f.CSP))
		for _, d := range f.CSP {
			cfg.CSP = append(cfg.CSP, domain.Directive{Name: d.Directive, Sources: d.Sources})
		}
	}
	return cfg
}
