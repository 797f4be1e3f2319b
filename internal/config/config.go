package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the assetlink configuration. It is loaded once at process
// start and passed explicitly to the components that need it.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Jira       JiraConfig       `yaml:"jira"`
	Confluence ConfluenceConfig `yaml:"confluence"`
	Cloud      CloudConfig      `yaml:"cloud"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Driver   string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// SearchFieldConfig is one configured search field. Attribute paths are not
// validated against the inventory schema ahead of time; a field that fails to
// resolve for a record is skipped for that record.
type SearchFieldConfig struct {
	Name      string `yaml:"name"`
	Attribute string `yaml:"attribute"`
	Enabled   bool   `yaml:"enabled"`
}

// SearchConfig holds term resolution and display gating settings.
type SearchConfig struct {
	TimeoutSec int                 `yaml:"timeout_sec"`
	Fields     []SearchFieldConfig `yaml:"fields"`
	// DisplayPatterns gate the related panel by manufacturer. Each entry is
	// a case-insensitive regex; entries that fail to compile match as plain
	// substrings instead.
	DisplayPatterns []string `yaml:"display_patterns"`
}

// ServiceConfig holds connection settings shared by both upstream services.
type ServiceConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Token is a personal access token; it takes precedence over basic auth.
	Token                  string `yaml:"token"`
	InsecureSkipVerify     bool   `yaml:"insecure_skip_verify"`
	LegacyTLSRenegotiation bool   `yaml:"legacy_tls_renegotiation"`
	MaxResults             int    `yaml:"max_results"`
}

// JiraConfig holds issue tracker settings.
type JiraConfig struct {
	ServiceConfig `yaml:",inline"`
	Projects      []string `yaml:"projects"`
	IssueTypes    []string `yaml:"issue_types"`
}

// ConfluenceConfig holds wiki settings.
type ConfluenceConfig struct {
	ServiceConfig `yaml:",inline"`
	Spaces        []string `yaml:"spaces"`
}

// CloudConfig switches both services to cloud-deployment authentication,
// sending the account email and API token as basic credentials.
type CloudConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Email    string `yaml:"email"`
	APIToken string `yaml:"api_token"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// DefaultSearchFields returns the fields most inventory deployments key on.
// Only hostname and serial search by default; the rest ship disabled so
// operators can switch them on without writing attribute paths.
func DefaultSearchFields() []SearchFieldConfig {
	return []SearchFieldConfig{
		{Name: "Hostname", Attribute: "name", Enabled: true},
		{Name: "Serial", Attribute: "serial", Enabled: true},
		{Name: "Asset Tag", Attribute: "asset_tag", Enabled: false},
		{Name: "Role", Attribute: "role.name", Enabled: false},
		{Name: "Primary IP", Attribute: "primary_ip4.address", Enabled: false},
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 30
	}
	if len(c.Search.Fields) == 0 {
		c.Search.Fields = DefaultSearchFields()
	}
	if c.Jira.MaxResults <= 0 {
		c.Jira.MaxResults = 10
	}
	if c.Confluence.MaxResults <= 0 {
		c.Confluence.MaxResults = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\" or \"redis\", got %q", c.Cache.Driver)
	}
	for i, f := range c.Search.Fields {
		if f.Name == "" {
			return fmt.Errorf("search.fields[%d].name is required", i)
		}
		if f.Attribute == "" {
			return fmt.Errorf("search.fields[%d].attribute is required", i)
		}
	}
	if c.Cloud.Enabled && (c.Cloud.Email == "" || c.Cloud.APIToken == "") {
		return fmt.Errorf("cloud.email and cloud.api_token are required when cloud.enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
