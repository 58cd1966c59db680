package types

import "time"

// HTTPConfig holds shared HTTP settings used by providers that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout. The dispatcher's per-provider
	// deadline usually fires first; this is the transport-level ceiling.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "answer-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LLMBackend identifies the language-model service implementation.
type LLMBackend string

const (
	BackendClaude LLMBackend = "claude"
	BackendGemini LLMBackend = "gemini"
)

// LLMConfig holds settings for the language-model service used by the
// classifier and the synthesizer.
type LLMConfig struct {
	// Backend selects the service: claude or gemini.
	Backend LLMBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// CompactModel is used for classification and small syntheses.
	CompactModel string `json:"compact_model" yaml:"compact_model" mapstructure:"compact_model"`

	// ExtendedModel is used when the synthesis input exceeds the threshold.
	ExtendedModel string `json:"extended_model" yaml:"extended_model" mapstructure:"extended_model"`

	// APIKey is the authentication key for the service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ProvidersConfig holds settings shared by the provider adapters.
type ProvidersConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Enabled lists the providers registered at startup. Empty means all.
	Enabled []string `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// MaxItems caps the items each provider returns (default 5).
	MaxItems int `json:"max_items" yaml:"max_items" mapstructure:"max_items"`

	// ItemCaps overrides MaxItems for individual providers.
	ItemCaps map[string]int `json:"item_caps,omitempty" yaml:"item_caps,omitempty" mapstructure:"item_caps"`

	// WikipediaLang selects the Wikipedia language edition (default "en").
	WikipediaLang string `json:"wikipedia_lang" yaml:"wikipedia_lang" mapstructure:"wikipedia_lang"`

	// SerpAPIKey authenticates Google Scholar queries.
	SerpAPIKey string `json:"serpapi_key,omitempty" yaml:"serpapi_key,omitempty" mapstructure:"serpapi_key"`

	// GoogleAPIKey authenticates grounded web search.
	GoogleAPIKey string `json:"google_api_key,omitempty" yaml:"google_api_key,omitempty" mapstructure:"google_api_key"`

	// WebModel is the Gemini model used for grounded web search.
	WebModel string `json:"web_model" yaml:"web_model" mapstructure:"web_model"`

	// OpenAlexEmail is sent as mailto for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`
}

// CapFor returns the item cap for provider p.
func (c ProvidersConfig) CapFor(p ProviderName) int {
	if n, ok := c.ItemCaps[string(p)]; ok && n > 0 {
		return n
	}
	if c.MaxItems > 0 {
		return c.MaxItems
	}
	return DefaultMaxItems
}

// PipelineConfig holds the orchestration defaults.
type PipelineConfig struct {
	// PerProviderTimeout bounds each provider call (default 20s).
	PerProviderTimeout time.Duration `json:"per_provider_timeout" yaml:"per_provider_timeout" mapstructure:"per_provider_timeout"`

	// MaxProviders caps dispatched providers per request (0 = no cap).
	MaxProviders int `json:"max_providers" yaml:"max_providers" mapstructure:"max_providers"`

	// MaxSynthesisTokens bounds the synthesis output (default 4096).
	MaxSynthesisTokens int `json:"max_synthesis_tokens" yaml:"max_synthesis_tokens" mapstructure:"max_synthesis_tokens"`

	// ExtendedThreshold is the serialized evidence size, in characters, above
	// which synthesis uses the extended model (default 10000).
	ExtendedThreshold int `json:"extended_threshold" yaml:"extended_threshold" mapstructure:"extended_threshold"`

	// FallbackProviders is used when classification is degraded.
	FallbackProviders []string `json:"fallback_providers" yaml:"fallback_providers" mapstructure:"fallback_providers"`
}

// ServerConfig holds settings for the HTTP front door.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RequestTimeout bounds a whole /api/search request.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`
}

// ArchiveConfig holds settings for the run-history archive.
type ArchiveConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// File, when set, receives JSON logs rotated by size.
	File string `json:"file" yaml:"file" mapstructure:"file"`

	// Production switches the console encoder to JSON.
	Production bool `json:"production" yaml:"production" mapstructure:"production"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
}

// Config groups every setting of the engine.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Providers ProvidersConfig `json:"providers" yaml:"providers" mapstructure:"providers"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive" mapstructure:"archive"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
}

// Defaults.
const (
	DefaultMaxItems           = 5
	DefaultPerProviderTimeout = 20 * time.Second
	DefaultMaxSynthesisTokens = 4096
	DefaultExtendedThreshold  = 10000
	DefaultUserAgent          = "answer-engine/0.1"
)

// DefaultFallbackProviders is the provider set used when classification fails.
var DefaultFallbackProviders = []ProviderName{ProviderArxiv, ProviderWikipedia}

// DefaultConfig returns a Config populated with the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Backend:       BackendGemini,
			CompactModel:  "gemini-2.0-flash-001",
			ExtendedModel: "gemini-2.5-pro",
			MaxRetries:    2,
		},
		Providers: ProvidersConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: DefaultUserAgent,
			},
			MaxItems:      DefaultMaxItems,
			WikipediaLang: "en",
			WebModel:      "gemini-2.0-flash-001",
		},
		Pipeline: PipelineConfig{
			PerProviderTimeout: DefaultPerProviderTimeout,
			MaxSynthesisTokens: DefaultMaxSynthesisTokens,
			ExtendedThreshold:  DefaultExtendedThreshold,
			FallbackProviders:  []string{string(ProviderArxiv), string(ProviderWikipedia)},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 2 * time.Minute,
		},
		Archive: ArchiveConfig{
			Path: "answer-engine.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4318",
		},
	}
}
