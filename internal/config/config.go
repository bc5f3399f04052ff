package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the carekb configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Logging   LoggingConfig   `yaml:"logging"`
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

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // sqlite, redis (default: sqlite)
	Path             string   `yaml:"path"`   // sqlite file
	Addrs            []string `yaml:"addrs"`  // redis
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW settings for the redis backend.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds the provider, its budget and the batching policy.
type EmbeddingConfig struct {
	Provider        string       `yaml:"provider"`
	APIKey          string       `yaml:"api_key"`
	BaseURL         string       `yaml:"base_url"`
	Model           string       `yaml:"model"`
	Dimensions      int          `yaml:"dimensions"`
	TimeoutSec      int          `yaml:"timeout_sec"`
	Budget          BudgetConfig `yaml:"budget"`
	Batch           BatchConfig  `yaml:"batch"`
	Tokenizer       string       `yaml:"tokenizer"`
	MemoryCacheSize int          `yaml:"memory_cache_size"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// BatchConfig bounds each provider call of the embedding pipeline.
type BatchConfig struct {
	MaxItems  int `yaml:"max_items"`
	MaxTokens int `yaml:"max_tokens"`
	DelayMs   int `yaml:"delay_ms"`
}

// CorpusConfig locates the source documents and their domains.
type CorpusConfig struct {
	Root    string         `yaml:"root"`
	Ceiling int            `yaml:"chunk_ceiling"`
	Domains []DomainConfig `yaml:"domains"`
}

// DomainConfig declares one collection domain.
type DomainConfig struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"` // general | structured
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
	Role       string   `yaml:"role"` // general | medication
}

// Domain roles used by query routing.
const (
	RoleGeneral    = "general"
	RoleMedication = "medication"
)

// SearchConfig tunes retrieval and fusion.
type SearchConfig struct {
	DefaultK            int     `yaml:"default_k"`
	VectorWeight        float64 `yaml:"vector_weight"`
	KeywordWeight       float64 `yaml:"keyword_weight"`
	Fusion              string  `yaml:"fusion"` // weighted | rrf
	MedicationItemLimit int     `yaml:"medication_item_limit"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is applied first when present.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = filepath.Join("data", "carekb.db")
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 60
	}
	if c.Embedding.Batch.MaxItems == 0 {
		c.Embedding.Batch.MaxItems = 50
	}
	if c.Embedding.Batch.MaxTokens == 0 {
		c.Embedding.Batch.MaxTokens = 50000
	}
	if c.Embedding.Batch.DelayMs == 0 {
		c.Embedding.Batch.DelayMs = 2000
	}
	if c.Embedding.Tokenizer == "" {
		c.Embedding.Tokenizer = "cl100k_base"
	}
	if c.Corpus.Ceiling <= 0 {
		c.Corpus.Ceiling = 1000
	}
	for i := range c.Corpus.Domains {
		if c.Corpus.Domains[i].Kind == "" {
			c.Corpus.Domains[i].Kind = "general"
		}
	}
	if c.Search.DefaultK <= 0 {
		c.Search.DefaultK = 5
	}
	if c.Search.VectorWeight == 0 && c.Search.KeywordWeight == 0 {
		c.Search.VectorWeight, c.Search.KeywordWeight = 0.5, 0.5
	}
	if c.Search.Fusion == "" {
		c.Search.Fusion = "weighted"
	}
	if c.Search.MedicationItemLimit <= 0 {
		c.Search.MedicationItemLimit = 50
	}
}

// Validate checks the configuration for correctness. Provider credentials and
// the corpus root are not checked here: a domain that cannot use them fails on its own.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for redis")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverRedis, c.Database.Driver)
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	b := c.Embedding.Batch
	if b.MaxItems < 0 || b.MaxTokens < 0 || b.DelayMs < 0 {
		return fmt.Errorf("embedding.batch limits must not be negative")
	}
	if c.Search.VectorWeight < 0 || c.Search.KeywordWeight < 0 {
		return fmt.Errorf("search weights must not be negative")
	}
	if c.Search.VectorWeight+c.Search.KeywordWeight <= 0 {
		return fmt.Errorf("search weights must have a positive sum")
	}
	switch c.Search.Fusion {
	case "weighted", "rrf":
	default:
		return fmt.Errorf("search.fusion must be \"weighted\" or \"rrf\", got %q", c.Search.Fusion)
	}
	return c.validateDomains()
}

func (c *Config) validateDomains() error {
	if len(c.Corpus.Domains) == 0 {
		return fmt.Errorf("corpus.domains must declare at least one domain")
	}
	seen := make(map[string]struct{}, len(c.Corpus.Domains))
	roles := make(map[string]string)
	for i, d := range c.Corpus.Domains {
		if d.Name == "" {
			return fmt.Errorf("corpus.domains[%d].name is required", i)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("corpus.domains: duplicate domain %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		switch d.Kind {
		case "general", "structured":
		default:
			return fmt.Errorf("corpus.domains.%s.kind must be \"general\" or \"structured\", got %q", d.Name, d.Kind)
		}
		switch d.Role {
		case "":
		case RoleGeneral, RoleMedication:
			if other, taken := roles[d.Role]; taken {
				return fmt.Errorf("corpus.domains: role %q claimed by both %q and %q", d.Role, other, d.Name)
			}
			roles[d.Role] = d.Name
		default:
			return fmt.Errorf("corpus.domains.%s.role must be %q or %q, got %q", d.Name, RoleGeneral, RoleMedication, d.Role)
		}
	}
	return nil
}

// DomainFor returns the domain that plays role, or "".
func (c *Config) DomainFor(role string) string {
	for _, d := range c.Corpus.Domains {
		if d.Role == role {
			return d.Name
		}
	}
	return ""
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
