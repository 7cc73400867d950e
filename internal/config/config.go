// Package config loads promptlab configuration with viper, supporting
// defaults, a YAML config file, PROMPTLAB_ environment overrides, and
// fsnotify-backed hot reload.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// Config is the full promptlab configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Defra    DefraConfig    `mapstructure:"defra" yaml:"defra"`
	Enhance  EnhanceConfig  `mapstructure:"enhance" yaml:"enhance"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefraConfig holds DefraDB container settings.
type DefraConfig struct {
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Image         string `mapstructure:"image" yaml:"image"`
	HostPort      string `mapstructure:"host_port" yaml:"host_port"`
}

// EnhanceConfig holds settings for the OpenAI snapshot enhancer.
type EnhanceConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// ResolverConfig holds pick-one policies for single-entity field access.
// Valid values are documented on prompt.PickPolicy.
type ResolverConfig struct {
	TaskPick     string `mapstructure:"task_pick" yaml:"task_pick"`
	SprintPick   string `mapstructure:"sprint_pick" yaml:"sprint_pick"`
	DocumentPick string `mapstructure:"document_pick" yaml:"document_pick"`
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	// Defaults are registered per leaf key so environment overrides apply
	// during Unmarshal; viper only consults the environment for keys it
	// already knows about.
	defaults := DefaultConfig()
	viper.SetDefault("server.host", defaults.Server.Host)
	viper.SetDefault("server.port", defaults.Server.Port)
	viper.SetDefault("defra.container_name", defaults.Defra.ContainerName)
	viper.SetDefault("defra.image", defaults.Defra.Image)
	viper.SetDefault("defra.host_port", defaults.Defra.HostPort)
	viper.SetDefault("enhance.api_key", defaults.Enhance.APIKey)
	viper.SetDefault("enhance.model", defaults.Enhance.Model)
	viper.SetDefault("enhance.enabled", defaults.Enhance.Enabled)
	viper.SetDefault("resolver.task_pick", defaults.Resolver.TaskPick)
	viper.SetDefault("resolver.sprint_pick", defaults.Resolver.SprintPick)
	viper.SetDefault("resolver.document_pick", defaults.Resolver.DocumentPick)

	// Environment variables with PROMPTLAB_ prefix, e.g. PROMPTLAB_SERVER_PORT
	viper.SetEnvPrefix("PROMPTLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.promptlab")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// EnhanceAPIKey returns the enhancer API key with ${ENV_VAR} references resolved.
func (c *Config) EnhanceAPIKey() string {
	return ResolveEnvVars(c.Enhance.APIKey)
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Promptlab configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
