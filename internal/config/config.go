package config

import (
	"time"

	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
	"trends-go/pkg/transport"
	"trends-go/pkg/trends"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	Transport TransportConfig `mapstructure:"transport"`
	Logger    logger.Config   `mapstructure:"logger"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// FetchTimeout bounds one fetch served over HTTP, queueing included.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// writeSlack is added to FetchTimeout so a response that finishes right at
// the fetch deadline can still be written.
const writeSlack = 10 * time.Second

// WriteTimeout is the HTTP server write timeout for fetch responses.
func (c ServerConfig) WriteTimeout() time.Duration {
	return c.FetchTimeout + writeSlack
}

// FetchConfig holds the defaults applied to every fetch. Per-call flags and
// query parameters override them.
type FetchConfig struct {
	Locale                string        `mapstructure:"locale"`
	Geo                   string        `mapstructure:"geo"`
	Timeframe             string        `mapstructure:"timeframe"`
	DaysAgo               int           `mapstructure:"days_ago"`
	RangeDays             int           `mapstructure:"range_days"`
	MaxRetries            int           `mapstructure:"max_retries"`
	StartIdentity         string        `mapstructure:"start_identity"`
	IdentitySwitchRetries int           `mapstructure:"identity_switch_retries"`
	TokenDelay            time.Duration `mapstructure:"token_delay"`
	WidgetDelay           time.Duration `mapstructure:"widget_delay"`
	SwitchDelay           time.Duration `mapstructure:"switch_delay"`
}

type EndpointsConfig struct {
	Home       string `mapstructure:"home"`
	Explore    string `mapstructure:"explore"`
	WidgetData string `mapstructure:"widget_data"`
}

type TransportConfig struct {
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
	Proxy   string        `mapstructure:"proxy"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}

// Options converts the fetch section into per-call options.
func (c FetchConfig) Options() trends.Options {
	return trends.Options{
		DaysAgo:               c.DaysAgo,
		RangeDays:             c.RangeDays,
		Timeframe:             c.Timeframe,
		Geo:                   c.Geo,
		Locale:                c.Locale,
		MaxRetries:            c.MaxRetries,
		StartIdentity:         identity.Identity(c.StartIdentity),
		IdentitySwitchRetries: c.IdentitySwitchRetries,
	}
}

func (c FetchConfig) Delays() trends.Delays {
	return trends.Delays{
		Token:  c.TokenDelay,
		Widget: c.WidgetDelay,
		Switch: c.SwitchDelay,
	}
}

func (c EndpointsConfig) Endpoints() trends.Endpoints {
	return trends.Endpoints{
		Home:       c.Home,
		Explore:    c.Explore,
		WidgetData: c.WidgetData,
	}
}

func (c TransportConfig) TransportConfig() transport.Config {
	return transport.Config{
		Backend: c.Backend,
		Timeout: c.Timeout,
		Proxy:   c.Proxy,
	}
}

// NewClient wires a trends client from the loaded configuration.
func (c *Config) NewClient(log *logger.Logger) (*trends.Client, error) {
	t, err := transport.New(c.Transport.TransportConfig())
	if err != nil {
		return nil, err
	}
	return trends.NewClient(t,
		trends.WithEndpoints(c.Endpoints.Endpoints()),
		trends.WithDelays(c.Fetch.Delays()),
		trends.WithLogger(log),
	), nil
}
