package config

import (
	"errors"
	"net/url"

	"github.com/spf13/viper"
)

type Configuration struct {
	// Hostname is the name this server federates under. Remote parties use it
	// to discover our endpoints and to address our users.
	Hostname string `mapstructure:"hostname"`
	// Https selects the scheme used both for our own URLs and when reaching
	// out to other hosts. Only disabled in tests.
	Https bool   `mapstructure:"https"`
	Port  uint16 `mapstructure:"port"`
	// DbUrl is the path to the database file.
	DbUrl string `mapstructure:"dburl"`
	// QueueDbUrl is the path to the delivery queue's own database file.
	QueueDbUrl       string `mapstructure:"queuedburl"`
	MigrationsFolder string `mapstructure:"migrationsfolder"`
	// FirehoseUrl, when set, receives a best-effort notification for every
	// publicly addressed activity.
	FirehoseUrl string `mapstructure:"firehoseurl"`
	// Debug, if true, will make the application log all HTTP requests and other events.
	Debug bool `mapstructure:"debug"`
	// Url is the instance's url, derived from Hostname and Https.
	Url *url.URL `mapstructure:"-"`
}

func ReadConfig() (Configuration, error) {
	v := viper.New()
	v.SetConfigName("courier")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/courier")
	v.SetEnvPrefix("courier")
	v.AutomaticEnv()

	v.SetDefault("https", true)
	v.SetDefault("port", 8080)
	v.SetDefault("dburl", "courier.db")
	v.SetDefault("queuedburl", "courier-queue.db")
	v.SetDefault("migrationsfolder", "migrations")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Configuration{}, err
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return Configuration{}, err
	}
	if cfg.Hostname == "" {
		return Configuration{}, errors.New("hostname not configured")
	}

	cfg.Url = InstanceURL(cfg.Hostname, cfg.Https)
	return cfg, nil
}

// InstanceURL builds the base url of a host given its name and scheme.
func InstanceURL(hostname string, https bool) *url.URL {
	scheme := "https"
	if !https {
		scheme = "http"
	}
	return &url.URL{Scheme: scheme, Host: hostname}
}
