package config

// ProviderGemini is the only supported model backend.
const ProviderGemini = "gemini"

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// LLMConfig configures the model backend.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"` // override for proxies and tests
	Timeout  string `yaml:"timeout"`
}

// ModelName returns the configured model or the default.
func (c LLMConfig) ModelName() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}
