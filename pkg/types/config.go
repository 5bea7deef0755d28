package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout bounds each outbound request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "protocol-analyzer/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIProvider identifies the generative model backend.
type AIProvider string

const (
	ProviderGemini AIProvider = "gemini"
	ProviderClaude AIProvider = "claude"
)

// AIConfig holds settings for the protocol extraction model.
type AIConfig struct {
	// Provider selects the backend: gemini or claude.
	Provider AIProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "gemini-1.5-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds a single generation call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ResearchConfig holds settings for the research registries.
type ResearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// NCBIAPIKey raises the E-utilities rate limit when set.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty" mapstructure:"ncbi_api_key"`

	// NCBIEmail is sent as the E-utilities contact address when set.
	NCBIEmail string `json:"ncbi_email,omitempty" yaml:"ncbi_email,omitempty" mapstructure:"ncbi_email"`

	// OpenFDAAPIKey raises the openFDA rate limit when set.
	OpenFDAAPIKey string `json:"openfda_api_key,omitempty" yaml:"openfda_api_key,omitempty" mapstructure:"openfda_api_key"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host string `json:"host" yaml:"host" mapstructure:"host"`
	Port int    `json:"port" yaml:"port" mapstructure:"port"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins"`

	// MaxUploadBytes caps request bodies.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// StaticDir holds the built frontend; empty disables static serving.
	StaticDir string `json:"static_dir" yaml:"static_dir" mapstructure:"static_dir"`

	// AllowedExtensions lists accepted upload extensions, with leading dot.
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
}

// ReportConfig holds settings for generated reports.
type ReportConfig struct {
	// Dir receives rendered report files and the report index database.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// FontPath is an optional UTF-8 TrueType font for PDF output. Without
	// it, PDF text is limited to the cp1252 character set.
	FontPath string `json:"font_path,omitempty" yaml:"font_path,omitempty" mapstructure:"font_path"`
}

// Config groups all component configurations.
type Config struct {
	Debug    bool           `json:"debug" yaml:"debug" mapstructure:"debug"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	AI       AIConfig       `json:"ai" yaml:"ai" mapstructure:"ai"`
	Research ResearchConfig `json:"research" yaml:"research" mapstructure:"research"`
	Report   ReportConfig   `json:"report" yaml:"report" mapstructure:"report"`
}
