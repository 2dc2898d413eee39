// Package config assembles the configuration of every component from
// defaults, an optional YAML file, PAGESCOPE_* environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pagescope/internal/browser"
	"pagescope/internal/fetcher"
	"pagescope/internal/logger"
	"pagescope/internal/render"
	"pagescope/internal/scraper"
)

// EnvPrefix prefixes every environment variable read by pagescope.
const EnvPrefix = "PAGESCOPE"

// Config is the aggregate configuration.
type Config struct {
	Fetcher fetcher.Config `mapstructure:"fetcher"`
	Render  render.Config  `mapstructure:"render"`
	Browser browser.Config `mapstructure:"browser"`
	Scraper scraper.Config `mapstructure:"scraper"`
	Logger  logger.Config  `mapstructure:"logger"`
}

// Default returns the production configuration.
func Default() Config {
	return Config{
		Fetcher: fetcher.Config{}.WithDefaults(),
		Render:  render.DefaultConfig(),
		Browser: browser.DefaultConfig(),
		Scraper: scraper.Config{}.WithDefaults(),
		Logger:  logger.Config{}.WithDefaults(),
	}
}

// Init prepares v: it loads .env, enables environment lookup, registers
// defaults and reads the config file. An explicit cfgFile must exist; the
// implicit ./pagescope.yaml is optional.
func Init(v *viper.Viper, cfgFile string) error {
	_ = godotenv.Load()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.BindEnv("browser.proxy_url", EnvPrefix+"_PROXY", EnvPrefix+"_BROWSER_PROXY_URL"); err != nil {
		return fmt.Errorf("failed to bind proxy env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		return nil
	}

	v.SetConfigName("pagescope")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Load unmarshals v into a Config and applies component defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Fetcher = cfg.Fetcher.WithDefaults()
	cfg.Render = cfg.Render.WithDefaults()
	cfg.Browser = cfg.Browser.WithDefaults()
	cfg.Scraper = cfg.Scraper.WithDefaults()
	cfg.Logger = cfg.Logger.WithDefaults()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("fetcher.timeout", d.Fetcher.Timeout)
	v.SetDefault("fetcher.user_agent", d.Fetcher.UserAgent)
	v.SetDefault("fetcher.accept_language", d.Fetcher.AcceptLanguage)
	v.SetDefault("fetcher.accept", d.Fetcher.Accept)
	v.SetDefault("fetcher.max_body_size", d.Fetcher.MaxBodySize)

	v.SetDefault("render.scroll_times", d.Render.ScrollTimes)
	v.SetDefault("render.scroll_delta", d.Render.ScrollDelta)
	v.SetDefault("render.scroll_delay", d.Render.ScrollDelay)
	v.SetDefault("render.settle_delay", d.Render.SettleDelay)
	v.SetDefault("render.click_delay", d.Render.ClickDelay)
	v.SetDefault("render.tab_delay", d.Render.TabDelay)
	v.SetDefault("render.page_delay", d.Render.PageDelay)
	v.SetDefault("render.max_pages", d.Render.MaxPages)
	v.SetDefault("render.idle_timeout", d.Render.IdleTimeout)
	v.SetDefault("render.action_timeout", d.Render.ActionTimeout)

	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.proxy_url", "")
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.user_agent", d.Browser.UserAgent)
	v.SetDefault("browser.accept_language", d.Browser.AcceptLanguage)
	v.SetDefault("browser.locale", d.Browser.Locale)

	v.SetDefault("scraper.text_threshold", d.Scraper.TextThreshold)
	v.SetDefault("scraper.raw_html_max_chars", d.Scraper.RawHTMLMaxChars)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.development", d.Logger.Development)
	v.SetDefault("logger.output_paths", d.Logger.OutputPaths)
}
