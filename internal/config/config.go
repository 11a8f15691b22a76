// Package config 负责加载和管理 tutorctl 的配置。
// 配置来源优先级（从高到低）：
// 1. 环境变量（LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, ANTHROPIC_API_KEY 等）
// 2. --config flag 指定的配置文件路径
// 3. ~/.config/tutorctl/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Language codes recognized for instructions, titles, and failure strings.
const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

// ProviderConfig 单个 provider 的配置
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ContextConfig 控制上下文组装策略。
// 这些在原始产品里是硬编码常量，这里提升为可配置项。
type ContextConfig struct {
	// ReferenceBudget: 注入参考资料的最大字符数
	ReferenceBudget int `yaml:"reference_budget"`

	// HistoryWindow: 随请求发送的最近对话轮数
	HistoryWindow int `yaml:"history_window"`

	// SearchWithReference: 参考资料存在时是否仍允许联网搜索
	SearchWithReference bool `yaml:"search_with_reference"`
}

// StoreConfig 会话持久化配置
type StoreConfig struct {
	// Backend: "snapshot"（默认，单个 JSON 快照文件）| "sqlite"
	Backend string `yaml:"backend"`

	// Path 覆盖默认存储路径（快照文件或数据库文件）
	Path string `yaml:"path"`
}

// SearchConfig 联网搜索配置
type SearchConfig struct {
	// Provider: "tavily" | "jina"（无 key 时的免费后备）
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
}

// Config 是 tutorctl 的完整配置结构
type Config struct {
	// Provider 当前使用的 provider 名称（如 "openai", "anthropic", "deepseek"）
	Provider string `yaml:"provider"`

	// Model 当前使用的模型（覆盖 provider 默认模型）
	Model string `yaml:"model"`

	// Language 回答语言："en"（默认）或 "ar"
	Language string `yaml:"language"`

	// Voice TTS 语音 ID（空则使用 provider 默认）
	Voice string `yaml:"voice"`

	// Instruction 自定义角色指令（空则使用按语言内置的默认指令）
	Instruction string `yaml:"instruction"`

	// Providers 各 provider 的具体配置
	Providers map[string]*ProviderConfig `yaml:"providers"`

	Context ContextConfig `yaml:"context"`
	Store   StoreConfig   `yaml:"store"`
	Search  SearchConfig  `yaml:"search"`

	// LogLevel: debug | info | warn | error（默认 warn）
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Provider:  "openai",
		Language:  LangEnglish,
		Providers: make(map[string]*ProviderConfig),
		Context: ContextConfig{
			ReferenceBudget:     12000,
			HistoryWindow:       6,
			SearchWithReference: false,
		},
		Store:    StoreConfig{Backend: "snapshot"},
		LogLevel: "warn",
	}
}

// Load 加载配置文件，合并环境变量覆盖
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// 确定配置文件路径
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "tutorctl", "config.yaml")
		}
	}

	// 读取配置文件（不存在时使用默认配置）
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	// 环境变量覆盖
	applyEnvOverrides(cfg)

	// 初始化 providers map
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}
	normalize(cfg)

	return cfg, nil
}

// GetProviderConfig 获取指定 provider 的配置，不存在时返回空配置
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return &ProviderConfig{}
}

// DataDir returns the base directory for local state (~/.local/share/tutorctl).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "tutorctl"), nil
}

// applyEnvOverrides 将环境变量覆盖到配置中
func applyEnvOverrides(cfg *Config) {
	// 全局选择先于 key 覆盖，这样 LLM_API_KEY 落在最终选中的 provider 上
	if v := os.Getenv("TUTORCTL_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("TUTORCTL_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("TUTORCTL_LANG"); v != "" {
		cfg.Language = v
	}

	// 通用覆盖
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		provider := cfg.Provider
		if cfg.Providers[provider] == nil {
			cfg.Providers[provider] = &ProviderConfig{}
		}
		cfg.Providers[provider].APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		provider := cfg.Provider
		if cfg.Providers[provider] == nil {
			cfg.Providers[provider] = &ProviderConfig{}
		}
		cfg.Providers[provider].BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}

	// Anthropic 专用
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		if cfg.Providers["anthropic"] == nil {
			cfg.Providers["anthropic"] = &ProviderConfig{}
		}
		cfg.Providers["anthropic"].APIKey = v
	}

	// 搜索
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
}

// normalize clamps values a config file could set to something unusable.
func normalize(cfg *Config) {
	if cfg.Language != LangEnglish && cfg.Language != LangArabic {
		cfg.Language = LangEnglish
	}
	if cfg.Context.ReferenceBudget <= 0 {
		cfg.Context.ReferenceBudget = 12000
	}
	if cfg.Context.HistoryWindow <= 0 {
		cfg.Context.HistoryWindow = 6
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "snapshot"
	}
}
