package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Corpus: CorpusConfig{
			Root: "corpus",
			Domains: []DomainConfig{
				{Name: "general", Kind: "general", Role: RoleGeneral},
				{Name: "medication", Kind: "structured", Dir: "medications", Role: RoleMedication},
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Budget.Action = action
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "valkey" }, "database.driver"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"redis without addrs", func(c *Config) { c.Database.Driver = DriverRedis }, "database.addrs"},
		{"negative weight", func(c *Config) { c.Search.VectorWeight = -1 }, "weights"},
		{"zero weights", func(c *Config) { c.Search.VectorWeight, c.Search.KeywordWeight = 0, 0 }, "positive sum"},
		{"unknown fusion", func(c *Config) { c.Search.Fusion = "max" }, "search.fusion"},
		{"negative batch", func(c *Config) { c.Embedding.Batch.MaxItems = -1 }, "embedding.batch"},
		{"no domains", func(c *Config) { c.Corpus.Domains = nil }, "at least one domain"},
		{"duplicate domain", func(c *Config) { c.Corpus.Domains[1].Name = "general" }, "duplicate"},
		{"unknown kind", func(c *Config) { c.Corpus.Domains[0].Kind = "csv" }, "kind"},
		{"unknown role", func(c *Config) { c.Corpus.Domains[0].Role = "grooming" }, "role"},
		{"role twice", func(c *Config) { c.Corpus.Domains[1].Role = RoleGeneral }, "claimed by both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Corpus: CorpusConfig{Domains: []DomainConfig{{Name: "general"}}}}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 || cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.Path == "" {
		t.Errorf("database = %+v", cfg.Database)
	}
	b := cfg.Embedding.Batch
	if b.MaxItems != 50 || b.MaxTokens != 50000 || b.DelayMs != 2000 {
		t.Errorf("batch = %+v", b)
	}
	if cfg.Embedding.Tokenizer != "cl100k_base" || cfg.Embedding.TimeoutSec != 60 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Corpus.Ceiling != 1000 || cfg.Corpus.Domains[0].Kind != "general" {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
	s := cfg.Search
	if s.DefaultK != 5 || s.VectorWeight != 0.5 || s.KeywordWeight != 0.5 || s.Fusion != "weighted" || s.MedicationItemLimit != 50 {
		t.Errorf("search = %+v", s)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 9000, ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Search: SearchConfig{VectorWeight: 0.7, KeywordWeight: 0.3, Fusion: "rrf"},
		Index:  IndexConfig{HNSWM: 32, HNSWEFConstruct: 400},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.Search.VectorWeight != 0.7 || cfg.Search.KeywordWeight != 0.3 || cfg.Search.Fusion != "rrf" {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("CAREKB_TEST_KEY", "sk-test")
	data := []byte(`
embedding:
  api_key: ${CAREKB_TEST_KEY}
  base_url: ${CAREKB_TEST_UNSET:-https://api.openai.com/v1}
corpus:
  root: ./corpus
  domains:
    - name: general
      role: general
    - name: medication
      kind: structured
      dir: medications
      role: medication
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("api_key = %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("base_url = %q", cfg.Embedding.BaseURL)
	}
	if cfg.DomainFor(RoleMedication) != "medication" || cfg.DomainFor(RoleGeneral) != "general" {
		t.Errorf("roles = %q / %q", cfg.DomainFor(RoleMedication), cfg.DomainFor(RoleGeneral))
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
