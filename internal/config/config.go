package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration, loaded once at startup and
// passed explicitly into the components that need it.
type Config struct {
	Claims       ClaimsConfig      `mapstructure:"claims" yaml:"claims"`
	Sources      SourcesConfig     `mapstructure:"sources" yaml:"sources"`
	Credibility  CredibilityConfig `mapstructure:"credibility" yaml:"credibility"`
	Models       ModelsConfig      `mapstructure:"models" yaml:"models"`
	Retrieval    RetrievalConfig   `mapstructure:"retrieval" yaml:"retrieval"`
	Consensus    ConsensusConfig   `mapstructure:"consensus" yaml:"consensus"`
	Enrich       EnrichConfig      `mapstructure:"enrich" yaml:"enrich"`
	Cache        CacheConfig       `mapstructure:"cache" yaml:"cache"`
	HTTP         HTTPConfig        `mapstructure:"http" yaml:"http"`
	Concurrency  ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	RateLimiting RateLimitConfig   `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Logging      LogConfig         `mapstructure:"logging" yaml:"logging"`
	Output       OutputConfig      `mapstructure:"output" yaml:"output"`
}

// ClaimsConfig bounds accepted claim input
type ClaimsConfig struct {
	MaxLength int `mapstructure:"max_length" yaml:"max_length"`
}

// SourcesConfig configures the evidence sources
type SourcesConfig struct {
	Wikipedia  WikipediaConfig  `mapstructure:"wikipedia" yaml:"wikipedia"`
	DuckDuckGo DuckDuckGoConfig `mapstructure:"duckduckgo" yaml:"duckduckgo"`
	Google     GoogleConfig     `mapstructure:"google" yaml:"google"`
}

// WikipediaConfig configures the MediaWiki search source
type WikipediaConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Language   string        `mapstructure:"language" yaml:"language"`
	MaxResults int           `mapstructure:"max_results" yaml:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Priority   int           `mapstructure:"priority" yaml:"priority"`
}

// DuckDuckGoConfig configures the DuckDuckGo Lite scrape source
type DuckDuckGoConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	MaxResults int           `mapstructure:"max_results" yaml:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Priority   int           `mapstructure:"priority" yaml:"priority"`
}

// GoogleConfig configures the Google scrape fallback source.
// It only fires when the other sources together produced fewer than
// TriggerBelow candidates.
type GoogleConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	MaxResults   int           `mapstructure:"max_results" yaml:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Priority     int           `mapstructure:"priority" yaml:"priority"`
	TriggerBelow int           `mapstructure:"trigger_below" yaml:"trigger_below"`
}

// CredibilityConfig drives the domain trust table.
// DomainWeights matches hosts exactly and by registered-domain suffix;
// SuffixWeights matches bare TLD-style suffixes such as ".gov".
type CredibilityConfig struct {
	DomainWeights   map[string]float64 `mapstructure:"domain_weights" yaml:"domain_weights"`
	SuffixWeights   map[string]float64 `mapstructure:"suffix_weights" yaml:"suffix_weights"`
	LowTrustDomains []string           `mapstructure:"low_trust_domains" yaml:"low_trust_domains"`
	LowTrustWeight  float64            `mapstructure:"low_trust_weight" yaml:"low_trust_weight"`
	DefaultWeight   float64            `mapstructure:"default_weight" yaml:"default_weight"`
}

// ModelRef names one model behind one provider
type ModelRef struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// ID returns the provider/model identifier used in results and logs
func (r ModelRef) ID() string {
	return r.Provider + "/" + r.Model
}

// ProviderConfig holds connection settings for one model provider
type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ModelsConfig binds pipeline capabilities to provider/model refs.
// NLI needs at least two refs for a real ensemble; Keywords may be left
// empty to use the built-in heuristic extractor.
type ModelsConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	NLI       []ModelRef                `mapstructure:"nli" yaml:"nli"`
	Embedding ModelRef                  `mapstructure:"embedding" yaml:"embedding"`
	Keywords  ModelRef                  `mapstructure:"keywords" yaml:"keywords"`
}

// RetrievalConfig tunes the evidence retrieval stage
type RetrievalConfig struct {
	MaxKeywords      int     `mapstructure:"max_keywords" yaml:"max_keywords"`
	MinSimilarity    float64 `mapstructure:"min_similarity" yaml:"min_similarity"`
	TopK             int     `mapstructure:"top_k" yaml:"top_k"`
	CredibilityShare float64 `mapstructure:"credibility_share" yaml:"credibility_share"`
	SimilarityShare  float64 `mapstructure:"similarity_share" yaml:"similarity_share"`
}

// ConsensusConfig tunes the verdict aggregation stage
type ConsensusConfig struct {
	MinConfidence       float64            `mapstructure:"min_confidence" yaml:"min_confidence"`
	TieEpsilon          float64            `mapstructure:"tie_epsilon" yaml:"tie_epsilon"`
	ZeroEvidenceLabel   string             `mapstructure:"zero_evidence_label" yaml:"zero_evidence_label"`
	TrustWeights        map[string]float64 `mapstructure:"trust_weights" yaml:"trust_weights,omitempty"`
	MaxExplanationItems int                `mapstructure:"max_explanation_items" yaml:"max_explanation_items"`
}

// EnrichConfig controls optional snippet expansion via page fetches
type EnrichConfig struct {
	Enabled         bool  `mapstructure:"enabled" yaml:"enabled"`
	MinSnippetChars int   `mapstructure:"min_snippet_chars" yaml:"min_snippet_chars"`
	MaxItems        int   `mapstructure:"max_items" yaml:"max_items"`
	MaxBodyBytes    int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// CacheConfig controls the verdict cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// HTTPConfig holds shared HTTP client settings
type HTTPConfig struct {
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	HTTPProxy    string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy   string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy      string        `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
	InsecureTLS  bool          `mapstructure:"insecure_tls" yaml:"insecure_tls"`
}

// ConcurrencyConfig bounds worker counts
type ConcurrencyConfig struct {
	Workers       int `mapstructure:"workers" yaml:"workers"`
	EnrichWorkers int `mapstructure:"enrich_workers" yaml:"enrich_workers"`
}

// RateLimitConfig bounds outbound request rates per domain
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// LogConfig controls the global zap logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// OutputConfig controls verdict rendering
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults. The credibility table and
// tuning constants are heuristics, exposed here rather than hard-coded.
func DefaultConfig() *Config {
	return &Config{
		Claims: ClaimsConfig{
			MaxLength: 500,
		},
		Sources: SourcesConfig{
			Wikipedia: WikipediaConfig{
				Enabled:    true,
				BaseURL:    "https://en.wikipedia.org/w/api.php",
				Language:   "en",
				MaxResults: 3,
				Timeout:    10 * time.Second,
				Priority:   1,
			},
			DuckDuckGo: DuckDuckGoConfig{
				Enabled:    true,
				BaseURL:    "https://lite.duckduckgo.com/lite/",
				MaxResults: 6,
				Timeout:    8 * time.Second,
				Priority:   2,
			},
			Google: GoogleConfig{
				Enabled:      false,
				BaseURL:      "https://www.google.com/search",
				MaxResults:   5,
				Timeout:      8 * time.Second,
				Priority:     3,
				TriggerBelow: 3,
			},
		},
		Credibility: CredibilityConfig{
			DomainWeights: map[string]float64{
				"wikipedia.org": 0.95,
				"nature.com":    0.90,
				"science.org":   0.90,
				"nih.gov":       0.90,
				"reuters.com":   0.85,
				"apnews.com":    0.85,
				"bbc.com":       0.85,
				"bbc.co.uk":     0.85,
			},
			SuffixWeights: map[string]float64{
				".gov":   0.92,
				".edu":   0.88,
				".ac.uk": 0.88,
			},
			LowTrustWeight: 0.30,
			DefaultWeight:  0.60,
		},
		Models: ModelsConfig{
			Providers: map[string]ProviderConfig{
				"huggingface": {
					BaseURL: "https://api-inference.huggingface.co",
					Timeout: 30 * time.Second,
				},
			},
			NLI: []ModelRef{
				{Provider: "huggingface", Model: "roberta-large-mnli"},
				{Provider: "huggingface", Model: "facebook/bart-large-mnli"},
			},
			Embedding: ModelRef{
				Provider: "huggingface",
				Model:    "sentence-transformers/all-MiniLM-L6-v2",
			},
		},
		Retrieval: RetrievalConfig{
			MaxKeywords:      8,
			MinSimilarity:    0.30,
			TopK:             5,
			CredibilityShare: 0.6,
			SimilarityShare:  0.4,
		},
		Consensus: ConsensusConfig{
			MinConfidence:       0.55,
			TieEpsilon:          1e-9,
			ZeroEvidenceLabel:   "neutral",
			MaxExplanationItems: 3,
		},
		Enrich: EnrichConfig{
			Enabled:         false,
			MinSnippetChars: 160,
			MaxItems:        3,
			MaxBodyBytes:    1_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		HTTP: HTTPConfig{
			UserAgent:    "TruthCheck/0.1 (+https://github.com/truthcheck/truthcheck)",
			Timeout:      10 * time.Second,
			MaxBodyBytes: 2_000_000,
		},
		Concurrency: ConcurrencyConfig{
			Workers:       4,
			EnrichWorkers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Load reads configuration from the given file (or the default search path
// when path is empty), layered over defaults and TRUTHCHECK_* environment
// variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".truthcheck"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TRUTHCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	applyEnvKeys(cfg)

	return cfg, nil
}

// setDefaults registers scalar defaults so environment variables resolve
// even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("claims.max_length", 500)
	v.SetDefault("retrieval.max_keywords", 8)
	v.SetDefault("retrieval.min_similarity", 0.30)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("consensus.min_confidence", 0.55)
	v.SetDefault("consensus.zero_evidence_label", "neutral")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("output.format", "text")
}

// applyEnvKeys fills provider API keys from the conventional environment
// variables when the config left them empty.
func applyEnvKeys(cfg *Config) {
	envByProvider := map[string]string{
		"openai":      "OPENAI_API_KEY",
		"anthropic":   "ANTHROPIC_API_KEY",
		"huggingface": "HUGGINGFACE_API_KEY",
	}

	for name, envVar := range envByProvider {
		pc, ok := cfg.Models.Providers[name]
		if !ok || pc.APIKey != "" {
			continue
		}
		if key := os.Getenv(envVar); key != "" {
			pc.APIKey = key
			cfg.Models.Providers[name] = pc
		}
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "truthcheck-cache")
	}
	return filepath.Join(home, ".truthcheck", "cache")
}
