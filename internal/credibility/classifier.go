package credibility

import (
	"net/url"
	"strings"

	"github.com/truthcheck/truthcheck/internal/config"
)

// Classifier assigns trust weights to evidence source domains from the
// configured credibility table. It is read-only after construction and safe
// for concurrent use.
type Classifier struct {
	config   *config.CredibilityConfig
	domains  map[string]float64
	lowTrust map[string]bool
}

// NewClassifier creates a classifier from the given table. A nil config
// uses the built-in defaults.
func NewClassifier(cfg *config.CredibilityConfig) *Classifier {
	if cfg == nil {
		cfg = &config.DefaultConfig().Credibility
	}

	classifier := &Classifier{
		config:   cfg,
		domains:  make(map[string]float64, len(cfg.DomainWeights)),
		lowTrust: make(map[string]bool, len(cfg.LowTrustDomains)),
	}

	for domain, weight := range cfg.DomainWeights {
		classifier.domains[strings.ToLower(domain)] = clamp01(weight)
	}
	for _, domain := range cfg.LowTrustDomains {
		classifier.lowTrust[strings.ToLower(domain)] = true
	}

	return classifier
}

// Weight returns the trust weight in [0,1] for a URL or bare host.
// Match order: explicit low-trust list, exact domain, registered-domain
// suffix (most specific wins), TLD-style suffix, configured default.
func (c *Classifier) Weight(rawURL string) float64 {
	host := hostOf(rawURL)
	if host == "" {
		return clamp01(c.config.DefaultWeight)
	}

	if c.matchesLowTrust(host) {
		return clamp01(c.config.LowTrustWeight)
	}

	if weight, ok := c.domains[host]; ok {
		return weight
	}

	// Registered-domain suffix match, e.g. en.wikipedia.org matches wikipedia.org
	bestLen := 0
	bestWeight := -1.0
	for domain, weight := range c.domains {
		if strings.HasSuffix(host, "."+domain) && len(domain) > bestLen {
			bestLen = len(domain)
			bestWeight = weight
		}
	}
	if bestWeight >= 0 {
		return bestWeight
	}

	// TLD-style suffixes such as .gov, .edu, .ac.uk
	bestLen = 0
	bestWeight = -1.0
	for suffix, weight := range c.config.SuffixWeights {
		if strings.HasSuffix(host, strings.ToLower(suffix)) && len(suffix) > bestLen {
			bestLen = len(suffix)
			bestWeight = clamp01(weight)
		}
	}
	if bestWeight >= 0 {
		return bestWeight
	}

	return clamp01(c.config.DefaultWeight)
}

// matchesLowTrust checks the host against the explicit low-trust list
func (c *Classifier) matchesLowTrust(host string) bool {
	if c.lowTrust[host] {
		return true
	}
	for domain := range c.lowTrust {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// hostOf extracts the lowercase host from a URL or passes a bare host through
func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	host := raw
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		host = parsed.Host
	}

	// Remove port
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}

	return strings.ToLower(host)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
