// Package config loads the gateway's TOML/env configuration into a typed
// AppConfig, grounded on the viper setup in
// mercierj-homeport/internal/cli/root.go's initConfig, adapted from a CLI's
// file-plus-flags precedence to a service's file-plus-env precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseKind discriminates DatabaseConfig's tagged union.
type DatabaseKind string

const (
	DatabaseFile     DatabaseKind = "file"
	DatabaseInMemory DatabaseKind = "inMemory"
	DatabasePostgres DatabaseKind = "postgres"
)

// DatabaseConfig is a flattened tagged union of storage backend
// configurations. Every field is decoded (and the postgres defaults are set)
// whatever Type says; only the fields of the branch named by Type are used.
type DatabaseConfig struct {
	Type DatabaseKind `mapstructure:"type"`

	// file
	Path string `mapstructure:"path"`

	// inMemory
	InitialDataJSON string `mapstructure:"initialDataJson"`

	// postgres
	Username                string `mapstructure:"username"`
	Password                string `mapstructure:"password"`
	Endpoint                string `mapstructure:"endpoint"`
	DBName                  string `mapstructure:"dbname"`
	CacheRefreshIntervalSec int    `mapstructure:"cacheRefreshIntervalSecs"`
}

// PublisherKind discriminates PublisherConfig's tagged union.
type PublisherKind string

const (
	PublisherNoOp  PublisherKind = "noOp"
	PublisherKafka PublisherKind = "kafka"
	PublisherMqtt  PublisherKind = "mqtt"
)

// KafkaPublisherConfig configures the Kafka publisher backend.
type KafkaPublisherConfig struct {
	Brokers              []string `mapstructure:"brokers"`
	Compression          string   `mapstructure:"compression"` // none|gzip|snappy
	ClientID             string   `mapstructure:"clientId"`
	RequiredAcks         string   `mapstructure:"requiredAcks"` // none|one|all
	ConnIdleTimeoutMs    int      `mapstructure:"connIdleTimeoutMs"`
	MessageTimeoutMs     int      `mapstructure:"messageTimeoutMs"`
	AckTimeoutMs         int      `mapstructure:"ackTimeoutMs"`
	MetadataFieldAsKey   string   `mapstructure:"metadataFieldAsKey"`
}

// MqttPublisherConfig configures the MQTT publisher backend.
type MqttPublisherConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	ClientID      string `mapstructure:"clientId"`
	KeepAliveSecs int    `mapstructure:"keepAliveSecs"`
	CleanSession  bool   `mapstructure:"cleanSession"`
	QoS           int    `mapstructure:"qos"` // 0=AtMostOnce 1=AtLeastOnce 2=ExactlyOnce
	Retain        bool   `mapstructure:"retain"`
}

// PublisherConfig is a tagged union of publisher backend configurations.
type PublisherConfig struct {
	Type  PublisherKind        `mapstructure:"type"`
	Kafka KafkaPublisherConfig `mapstructure:"-"`
	Mqtt  MqttPublisherConfig  `mapstructure:"-"`
}

// GatewayConfig configures the event-handling pipeline.
type GatewayConfig struct {
	MetricsEnabled    bool            `mapstructure:"metricsEnabled"`
	SamplingEnabled   bool            `mapstructure:"samplingEnabled"`
	SamplingThreshold float64         `mapstructure:"samplingThreshold"`
	Publisher         PublisherConfig `mapstructure:"-"`
}

// JwtAuthConfig configures the optional bearer-auth layer for admin
// endpoints.
type JwtAuthConfig struct {
	JwksURL             string `mapstructure:"jwksUrl"`
	RefreshIntervalSecs int    `mapstructure:"refreshIntervalSecs"`
}

// ApiConfig configures the HTTP mount point and optional auth layer.
type ApiConfig struct {
	Prefix  string         `mapstructure:"prefix"`
	JwtAuth *JwtAuthConfig `mapstructure:"-"`
}

// AppConfig is the gateway's fully resolved configuration tree.
type AppConfig struct {
	DebugMode bool           `mapstructure:"debugMode"`
	Server    ServerConfig   `mapstructure:"server"`
	Database  DatabaseConfig `mapstructure:"database"`
	Gateway   GatewayConfig  `mapstructure:"gateway"`
	Api       ApiConfig      `mapstructure:"api"`
}

// Load reads configFile (a TOML document; empty uses defaults and env
// overrides alone) plus APP_-prefixed environment variables, and returns a
// fully resolved AppConfig.
func Load(configFile string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := unmarshalTaggedUnions(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dbname", "event_gateway")
	v.SetDefault("database.cacheRefreshIntervalSecs", 300)
	v.SetDefault("gateway.samplingThreshold", 100.0)
	v.SetDefault("api.prefix", "/")
}

// unmarshalTaggedUnions fills in the publisher and JWT auth branches that
// plain mapstructure decoding leaves empty, since viper has no native
// support for serde-style internally tagged enums.
func unmarshalTaggedUnions(v *viper.Viper, cfg *AppConfig) error {
	pubKind := PublisherKind(v.GetString("gateway.publisher.type"))
	cfg.Gateway.Publisher.Type = pubKind
	switch pubKind {
	case PublisherKafka:
		if err := v.UnmarshalKey("gateway.publisher", &cfg.Gateway.Publisher.Kafka); err != nil {
			return fmt.Errorf("config: kafka publisher: %w", err)
		}
	case PublisherMqtt:
		if err := v.UnmarshalKey("gateway.publisher", &cfg.Gateway.Publisher.Mqtt); err != nil {
			return fmt.Errorf("config: mqtt publisher: %w", err)
		}
	case PublisherNoOp, "":
		cfg.Gateway.Publisher.Type = PublisherNoOp
	default:
		return fmt.Errorf("config: unknown publisher type %q", pubKind)
	}

	if v.IsSet("api.jwtAuth") {
		var jwt JwtAuthConfig
		if err := v.UnmarshalKey("api.jwtAuth", &jwt); err != nil {
			return fmt.Errorf("config: jwt auth: %w", err)
		}
		cfg.Api.JwtAuth = &jwt
	}

	return nil
}
