package types

// Provider keys recognised out of the box. Any other key configured under
// apiProvider is served by the generic variant unless it names a kind.
const (
	ProviderOpenAI = "OpenAI"
	ProviderPSChat = "PSChat"
	ProviderMyAPI  = "MyAPI"
)

// ProviderKind identifies the wire shape a provider speaks.
type ProviderKind string

const (
	KindCompletion ProviderKind = "completion" // full messages array, OpenAI style
	KindThread     ProviderKind = "thread"     // last message + thread id, PSChat style
	KindGeneric    ProviderKind = "generic"    // {question, system_prompt}
)

// Config represents the AI Code Companion configuration.
// Field names follow the extension settings so existing config files load unchanged.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Active provider key, looked up in APIProvider
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// Generation parameters
	Model                string   `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens            int      `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	ModelMaxTokensLength int      `json:"modelMaxTokensLength,omitempty" yaml:"modelMaxTokensLength,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP                 *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`

	// Key used to encrypt stored access tokens (32 bytes for AES-256)
	EncryptionKey string `json:"encryptionKey,omitempty" yaml:"encryptionKey,omitempty"`

	// Plain access token, normally only set through AICC_ACCESS_TOKEN
	AccessToken string `json:"-" yaml:"-"`

	// Provider endpoints keyed by provider key
	APIProvider map[string]ProviderConfig `json:"apiProvider,omitempty" yaml:"apiProvider,omitempty"`

	// Preconfigured testing libraries keyed by language id
	TestingLibraries map[string]TestingLibraryConfig `json:"testingLibraries,omitempty" yaml:"testingLibraries,omitempty"`

	// Code review fan-out settings
	Review *ReviewConfig `json:"review,omitempty" yaml:"review,omitempty"`
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	EndPointURL string       `json:"endPointUrl" yaml:"endPointUrl"`
	Kind        ProviderKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// TestingLibraryConfig lists libraries to use per test type for one language.
type TestingLibraryConfig struct {
	UnitTests     []string `json:"unitTests,omitempty" yaml:"unitTests,omitempty"`
	EndToEndTests []string `json:"endToEndTests,omitempty" yaml:"endToEndTests,omitempty"`
}

// ReviewConfig controls the per-file review fan-out.
type ReviewConfig struct {
	// Exclude holds doublestar globs matched against repository-relative paths.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// Concurrency caps in-flight review requests. Zero means unlimited.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// Defaults applied when a config field is unset.
const (
	DefaultMaxTokens            = 1000
	DefaultModelMaxTokensLength = 4096
	DefaultTemperature          = 0.7
	DefaultTopP                 = 1.0
	DefaultEncryptionKey        = "vscode2gpt112f9dbd8a37fe98421801"
)

// DefaultAPIProviders returns the built-in provider endpoints.
func DefaultAPIProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		ProviderOpenAI: {EndPointURL: "https://api.openai.com/v1/chat/completions", Kind: KindCompletion},
		ProviderPSChat: {EndPointURL: "https://api.psnext.info/api/chat/", Kind: KindThread},
		ProviderMyAPI:  {EndPointURL: "http://localhost:5000/predictions", Kind: KindGeneric},
	}
}

// KindOf resolves the wire shape for a provider key. An explicit kind in
// config wins; otherwise the well-known keys map to their variants and
// everything else falls back to generic.
func (c *Config) KindOf(providerKey string) ProviderKind {
	if c != nil {
		if p, ok := c.APIProvider[providerKey]; ok && p.Kind != "" {
			return p.Kind
		}
	}
	switch providerKey {
	case ProviderOpenAI:
		return KindCompletion
	case ProviderPSChat:
		return KindThread
	default:
		return KindGeneric
	}
}

// Endpoint returns the configured endpoint for a provider key.
func (c *Config) Endpoint(providerKey string) string {
	if c == nil {
		return ""
	}
	return c.APIProvider[providerKey].EndPointURL
}

// GetTemperature returns the temperature or its default.
func (c *Config) GetTemperature() float64 {
	if c == nil || c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// GetTopP returns top_p or its default.
func (c *Config) GetTopP() float64 {
	if c == nil || c.TopP == nil {
		return DefaultTopP
	}
	return *c.TopP
}

// GetMaxTokens returns maxTokens or its default.
func (c *Config) GetMaxTokens() int {
	if c == nil || c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}

// GetModelMaxTokensLength returns the model context window or its default.
func (c *Config) GetModelMaxTokensLength() int {
	if c == nil || c.ModelMaxTokensLength <= 0 {
		return DefaultModelMaxTokensLength
	}
	return c.ModelMaxTokensLength
}
