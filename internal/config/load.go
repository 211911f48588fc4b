package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors config.yaml's recognized shape (spec.md §6). Every
// field is optional; absent fields leave the corresponding Config field at
// its DefaultConfig() value.
type fileConfig struct {
	Semantic *struct {
		Enabled   *bool    `yaml:"enabled"`
		Provider  *string  `yaml:"provider"`
		Threshold *float64 `yaml:"threshold"`
	} `yaml:"semantic"`
	LLM *struct {
		Provider *string `yaml:"provider"`
		Model    *string `yaml:"model"`
	} `yaml:"llm"`
	Autosave *struct {
		SessionSummary          *bool `yaml:"session_summary"`
		SummaryIntervalMessages *int  `yaml:"summary_interval_messages"`
	} `yaml:"autosave"`
	Startup *struct {
		AutoLoadPinned         *bool `yaml:"auto_load_pinned"`
		AskLoadPreviousSession *bool `yaml:"ask_load_previous_session"`
	} `yaml:"startup"`
	Expiration *struct {
		Enabled     *bool    `yaml:"enabled"`
		DefaultDays *int     `yaml:"default_days"`
		Categories  []string `yaml:"categories"`
	} `yaml:"expiration"`
	Relevance *struct {
		SearchLimit   *int     `yaml:"search_limit"`
		IncludeGlobal *bool    `yaml:"include_global"`
		AccessWeight  *float64 `yaml:"access_weight"`
	} `yaml:"relevance"`
	Hooks *struct {
		ErrorNudge *bool `yaml:"error_nudge"`
	} `yaml:"hooks"`
}

// Load builds a Config starting from DefaultConfig(), applying config.yaml
// at path (if it exists) and then AGENT_MEMORY_* environment variables on
// top, matching the teacher's layered flag/env precedence in
// internal/cmd/serve/serve.go. A missing config.yaml is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		applyFileConfig(&cfg, &fc)
	case os.IsNotExist(err):
		log.Debug("config file not found, using defaults", "path", path)
	default:
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	if fc.Semantic != nil {
		if fc.Semantic.Enabled != nil {
			cfg.Semantic.Enabled = *fc.Semantic.Enabled
		}
		if fc.Semantic.Provider != nil {
			cfg.Semantic.Provider = *fc.Semantic.Provider
		}
		if fc.Semantic.Threshold != nil {
			cfg.Semantic.Threshold = *fc.Semantic.Threshold
		}
	}
	if fc.LLM != nil {
		if fc.LLM.Provider != nil {
			cfg.LLM.Provider = *fc.LLM.Provider
		}
		if fc.LLM.Model != nil {
			cfg.LLM.Model = *fc.LLM.Model
		}
	}
	if fc.Autosave != nil {
		if fc.Autosave.SessionSummary != nil {
			cfg.Autosave.SessionSummary = *fc.Autosave.SessionSummary
		}
		if fc.Autosave.SummaryIntervalMessages != nil {
			cfg.Autosave.SummaryIntervalMessages = *fc.Autosave.SummaryIntervalMessages
		}
	}
	if fc.Startup != nil {
		if fc.Startup.AutoLoadPinned != nil {
			cfg.Startup.AutoLoadPinned = *fc.Startup.AutoLoadPinned
		}
		if fc.Startup.AskLoadPreviousSession != nil {
			cfg.Startup.AskLoadPreviousSession = *fc.Startup.AskLoadPreviousSession
		}
	}
	if fc.Expiration != nil {
		if fc.Expiration.Enabled != nil {
			cfg.Expiration.Enabled = *fc.Expiration.Enabled
		}
		if fc.Expiration.DefaultDays != nil {
			cfg.Expiration.DefaultDays = *fc.Expiration.DefaultDays
		}
		if fc.Expiration.Categories != nil {
			cfg.Expiration.Categories = fc.Expiration.Categories
		}
	}
	if fc.Relevance != nil {
		if fc.Relevance.SearchLimit != nil {
			cfg.Relevance.SearchLimit = *fc.Relevance.SearchLimit
		}
		if fc.Relevance.IncludeGlobal != nil {
			cfg.Relevance.IncludeGlobal = *fc.Relevance.IncludeGlobal
		}
		if fc.Relevance.AccessWeight != nil {
			cfg.Relevance.AccessWeight = *fc.Relevance.AccessWeight
		}
	}
	if fc.Hooks != nil && fc.Hooks.ErrorNudge != nil {
		cfg.Hooks.ErrorNudge = *fc.Hooks.ErrorNudge
	}
}

// applyEnv overlays AGENT_MEMORY_* environment variables, following the
// teacher's MEMORY_SERVICE_<FIELD> env-var convention (internal/config/config.go).
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("AGENT_MEMORY_PATH")); v != "" {
		cfg.BasePath = v
	}
	if v := os.Getenv("AGENT_MEMORY_SEMANTIC_ENABLED"); v != "" {
		cfg.Semantic.Enabled = parseBoolEnv(v, cfg.Semantic.Enabled)
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_MEMORY_SEMANTIC_PROVIDER")); v != "" {
		cfg.Semantic.Provider = v
	}
	if v := os.Getenv("AGENT_MEMORY_SEMANTIC_THRESHOLD"); v != "" {
		cfg.Semantic.Threshold = parseFloatEnv(v, cfg.Semantic.Threshold)
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_MEMORY_LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_MEMORY_LLM_MODEL")); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.AnthropicAPIKey = v
	}
}
