package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"trends-go/pkg/identity"
	"trends-go/pkg/transport"
	"trends-go/pkg/trends"
)

const EnvPrefix = "TRENDS"

type manager struct {
	mu         sync.RWMutex
	config     *Config
	viper      *viper.Viper
	configPath string
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

// Load reads configPath if given, then applies TRENDS_* environment
// overrides on top of the defaults. An empty path means defaults and
// environment only.
func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configPath = configPath
	m.setupViper()

	config, err := m.read()
	if err != nil {
		return nil, err
	}
	m.config = config
	return config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return fmt.Errorf("config not loaded")
	}

	config, err := m.read()
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	m.config = config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) read() (*Config, error) {
	if m.configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (m *manager) setupViper() {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	}

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	setDefaults(m.viper)
}

// setDefaults registers every key; AutomaticEnv only reaches keys viper
// already knows about when unmarshalling.
func setDefaults(v *viper.Viper) {
	endpoints := trends.DefaultEndpoints()
	delays := trends.DefaultDelays()
	options := trends.DefaultOptions()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.fetch_timeout", 5*time.Minute)

	v.SetDefault("fetch.locale", options.Locale)
	v.SetDefault("fetch.geo", "")
	v.SetDefault("fetch.timeframe", "")
	v.SetDefault("fetch.days_ago", 0)
	v.SetDefault("fetch.range_days", 0)
	v.SetDefault("fetch.max_retries", options.MaxRetries)
	v.SetDefault("fetch.start_identity", string(options.StartIdentity))
	v.SetDefault("fetch.identity_switch_retries", options.IdentitySwitchRetries)
	v.SetDefault("fetch.token_delay", delays.Token)
	v.SetDefault("fetch.widget_delay", delays.Widget)
	v.SetDefault("fetch.switch_delay", delays.Switch)

	v.SetDefault("endpoints.home", endpoints.Home)
	v.SetDefault("endpoints.explore", endpoints.Explore)
	v.SetDefault("endpoints.widget_data", endpoints.WidgetData)

	v.SetDefault("transport.backend", transport.BackendTLSClient)
	v.SetDefault("transport.timeout", 30*time.Second)
	v.SetDefault("transport.proxy", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.time_format", "")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.FetchTimeout <= 0 {
		return fmt.Errorf("server fetch_timeout must be positive")
	}

	if err := ValidateLocale(config.Fetch.Locale); err != nil {
		return err
	}
	if config.Fetch.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	if config.Fetch.IdentitySwitchRetries < 0 {
		return fmt.Errorf("identity_switch_retries cannot be negative")
	}
	if config.Fetch.DaysAgo < 0 {
		return fmt.Errorf("days_ago cannot be negative")
	}
	if config.Fetch.RangeDays < 0 {
		return fmt.Errorf("range_days cannot be negative")
	}
	if _, err := identity.Default().IndexOf(identity.Identity(config.Fetch.StartIdentity)); err != nil {
		return err
	}
	if config.Fetch.TokenDelay < 0 || config.Fetch.WidgetDelay < 0 || config.Fetch.SwitchDelay < 0 {
		return fmt.Errorf("delays cannot be negative")
	}

	if config.Endpoints.Home == "" || config.Endpoints.Explore == "" || config.Endpoints.WidgetData == "" {
		return fmt.Errorf("endpoints cannot be empty")
	}

	switch config.Transport.Backend {
	case transport.BackendTLSClient, transport.BackendFastHTTP:
	default:
		return fmt.Errorf("unknown transport backend: %q", config.Transport.Backend)
	}
	if config.Transport.Timeout <= 0 {
		return fmt.Errorf("transport timeout must be positive")
	}

	return nil
}

// ValidateLocale accepts anything that parses as a BCP 47 language tag.
func ValidateLocale(locale string) error {
	if locale == "" {
		return fmt.Errorf("locale cannot be empty")
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return nil
}
