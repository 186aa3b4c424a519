package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const EnvPrefix = "HOMESERVICES"

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Token   string        `mapstructure:"token"`
}

// DispatchConfig holds the timings of the call status poller.
type DispatchConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	AcceptedDelay time.Duration `mapstructure:"accepted_delay"` // before OnAccepted
	CloseDelay    time.Duration `mapstructure:"close_delay"`    // between OnAccepted and OnClosed
	DismissDelay  time.Duration `mapstructure:"dismiss_delay"`  // before OnClosed on decline/no response
}

type CustomerConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Address   string  `mapstructure:"address"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
}

// JournalConfig selects where dispatch events are written.
type JournalConfig struct {
	Destination     string             `mapstructure:"destination"` // console, json, parquet, kafka, rabbitmq, none
	OutputPath      string             `mapstructure:"output_path"`
	OutputFolder    string             `mapstructure:"output_folder"`
	KafkaBrokerList string             `mapstructure:"kafka_broker_list"`
	RabbitURL       string             `mapstructure:"rabbitmq_url"`
	RabbitExchange  string             `mapstructure:"rabbitmq_exchange"`
	CloudStorage    CloudStorageConfig `mapstructure:"cloud_storage"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type SandboxConfig struct {
	Addr             string   `mapstructure:"addr"`
	Seed             int64    `mapstructure:"seed"`
	VendorsPerQuery  int      `mapstructure:"vendors_per_query"`
	StatusScript     []string `mapstructure:"status_script"`
	FailCalls        bool     `mapstructure:"fail_calls"`
	SmartphoneRatio  float64  `mapstructure:"smartphone_ratio"`
	UnreachableRatio float64  `mapstructure:"unreachable_ratio"`
	CityLat          float64  `mapstructure:"city_latitude"`
	CityLon          float64  `mapstructure:"city_longitude"`
	UrbanRadius      float64  `mapstructure:"urban_radius"`
	// VerificationCode is the sign-up code the sandbox accepts; random
	// when empty
	VerificationCode string `mapstructure:"verification_code"`
}

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Customer CustomerConfig `mapstructure:"customer"`
	Log      LogConfig      `mapstructure:"log"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
}

var ErrMissingBaseURL = errors.New("api.base_url is required")

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	// keys without a meaningful default are still registered so that
	// AutomaticEnv picks them up during Unmarshal
	for _, key := range []string{
		"api.base_url", "api.token",
		"journal.output_path", "journal.rabbitmq_url",
		"journal.cloud_storage.bucket_name", "journal.cloud_storage.region",
		"database.dsn",
		"cache.redis_addr", "cache.redis_password",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("sandbox.fail_calls", false)
	v.SetDefault("sandbox.unreachable_ratio", 0.0)

	v.SetDefault("api.timeout", "15s")

	v.SetDefault("dispatch.poll_interval", "2s")
	v.SetDefault("dispatch.tick_interval", "1s")
	v.SetDefault("dispatch.call_timeout", "120s")
	v.SetDefault("dispatch.accepted_delay", "1500ms")
	v.SetDefault("dispatch.close_delay", "500ms")
	v.SetDefault("dispatch.dismiss_delay", "2s")

	// Lahore
	v.SetDefault("customer.latitude", 31.5204)
	v.SetDefault("customer.longitude", 74.3587)
	v.SetDefault("customer.address", "Customer Address")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("journal.destination", "none")
	v.SetDefault("journal.output_folder", "dispatch")
	v.SetDefault("journal.kafka_broker_list", "localhost:9092")
	v.SetDefault("journal.rabbitmq_exchange", "dispatch_events")
	v.SetDefault("journal.cloud_storage.provider", "local")

	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("sandbox.addr", ":8080")
	v.SetDefault("sandbox.seed", 42)
	v.SetDefault("sandbox.vendors_per_query", 8)
	v.SetDefault("sandbox.status_script", []string{"pending", "pending", "accepted"})
	v.SetDefault("sandbox.smartphone_ratio", 0.25)
	v.SetDefault("sandbox.city_latitude", 31.5204)
	v.SetDefault("sandbox.city_longitude", 74.3587)
	v.SetDefault("sandbox.urban_radius", 8.0)
	v.SetDefault("sandbox.verification_code", "")
}

// LoadConfig reads .env files, the optional config file, and HOMESERVICES_*
// environment variables into v and decodes the result.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("homeservices")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	return &config, nil
}

// Validate checks the settings every API-facing command needs.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	d := cfg.Dispatch
	for name, value := range map[string]time.Duration{
		"dispatch.poll_interval": d.PollInterval,
		"dispatch.tick_interval": d.TickInterval,
		"dispatch.call_timeout":  d.CallTimeout,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, value)
		}
	}
	return nil
}

// CustomerLocation is the delivery location sent with new orders.
func (cfg *Config) CustomerLocation() Location {
	return Location{Lat: cfg.Customer.Latitude, Lon: cfg.Customer.Longitude}
}
