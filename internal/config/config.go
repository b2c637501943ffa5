package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the arming binaries.
type Config struct {
	// HTTPAddress is the listen address of the HTTP API.
	HTTPAddress string `yaml:"http_addr"`
	// GRPCAddress is the gRPC control API address, used to listen and to dial.
	GRPCAddress string `yaml:"grpc_addr"`
	// CORSOrigins lists the browser origins allowed to call the HTTP API.
	CORSOrigins []string `yaml:"cors_origins"`
	// Timeout bounds RPC calls and store pings.
	Timeout time.Duration `yaml:"timeout"`
	// ReconcileInterval is the period of the scheduler loop.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	// NotArmedRepeat re-raises an ongoing "not armed" condition after this long.
	// Zero raises it once per episode.
	NotArmedRepeat time.Duration `yaml:"not_armed_repeat"`
	// ScheduleDB is the SQLite file holding schedules and exception rules.
	ScheduleDB string `yaml:"schedule_db"`
	// Inventory configures the system-of-record database.
	Inventory InventoryConfig `yaml:"inventory"`
	// Panel configures where the global panel flag is kept.
	Panel PanelConfig `yaml:"panel"`
	// ProServer configures the monitoring endpoint.
	ProServer ProServerConfig `yaml:"proserver"`
	// MQTT configures the optional event fan-out.
	MQTT MQTTConfig `yaml:"mqtt"`
	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// InventoryConfig describes the Postgres inventory connection.
type InventoryConfig struct {
	// DSN is a lib/pq connection string.
	DSN string `yaml:"dsn"`
	// MaxOpenConns caps open connections; zero keeps the driver default.
	MaxOpenConns int `yaml:"max_open_conns"`
	// MaxIdleConns caps idle connections; zero keeps the driver default.
	MaxIdleConns int `yaml:"max_idle_conns"`
	// BuildingsTTL is how long the building list is cached.
	BuildingsTTL time.Duration `yaml:"buildings_ttl"`
}

// PanelConfig selects the panel flag cache backend.
type PanelConfig struct {
	// Backend is "file" or "redis".
	Backend string `yaml:"backend"`
	// File is the JSON cache path for the file backend.
	File string `yaml:"file"`
	// RedisAddress is host:port of the redis backend.
	RedisAddress string `yaml:"redis_addr"`
	// RedisPassword authenticates to redis.
	RedisPassword string `yaml:"redis_password"`
	// RedisDB selects the redis database.
	RedisDB int `yaml:"redis_db"`
	// Key is the cache key of the flag.
	Key string `yaml:"key"`
}

// ProServerConfig describes the TCP monitoring endpoint.
type ProServerConfig struct {
	// Address is host:port of the receiver.
	Address string `yaml:"address"`
	// Tag identifies this system in every message.
	Tag string `yaml:"tag"`
	// Timeout bounds dial and write of one message.
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig describes the optional MQTT broker.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883. Empty disables MQTT.
	Broker string `yaml:"broker"`
	// ClientID is the MQTT client identifier.
	ClientID string `yaml:"client_id"`
	// Username authenticates to the broker.
	Username string `yaml:"username"`
	// Password authenticates to the broker.
	Password string `yaml:"password"`
	// TopicPrefix is prepended to every event topic.
	TopicPrefix string `yaml:"topic_prefix"`
	// QoS is the publish quality of service (0-2).
	QoS byte `yaml:"qos"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	// Level is a zap level name.
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
}

// Panel backends.
const (
	PanelBackendFile  = "file"
	PanelBackendRedis = "redis"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "arming-settings.yaml"
	// DefaultHTTPAddress is the default HTTP API listen address.
	DefaultHTTPAddress = "127.0.0.1:8000"
	// DefaultGRPCAddress is the default control API address.
	DefaultGRPCAddress = "127.0.0.1:50051"
	// DefaultScheduleDB is the default SQLite schedule store.
	DefaultScheduleDB = "building_schedules.db"
	// DefaultPanelFile is the default JSON cache file.
	DefaultPanelFile = "app_cache.json"
	// DefaultPanelKey is the cache key of the global panel flag.
	DefaultPanelKey = "panel_armed"
	// DefaultProServerAddress is the receiver the original deployment used.
	DefaultProServerAddress = "10.192.0.173:7777"
	// DefaultProServerTag identifies this system to the receiver.
	DefaultProServerTag = "Axe"
	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second
	// DefaultNotifyTimeout bounds one notification attempt.
	DefaultNotifyTimeout = 2 * time.Second
	// DefaultReconcileInterval is the scheduler period.
	DefaultReconcileInterval = time.Minute
	// DefaultBuildingsTTL is how long the building list is cached.
	DefaultBuildingsTTL = 5 * time.Minute
	// DefaultMQTTTopicPrefix prefixes MQTT event topics.
	DefaultMQTTTopicPrefix = "arming"
	// DefaultFilePermissions is the default permission for written files.
	DefaultFilePermissions = 0o600
)

// DefaultCORSOrigins returns the origins of the bundled web console.
func DefaultCORSOrigins() []string {
	return []string{"http://127.0.0.1:5500", "http://localhost:5500"}
}

// Environment overrides honoured for the monitoring endpoint.
const (
	EnvProServerIP   = "PROSERVER_IP"
	EnvProServerPort = "PROSERVER_PORT"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInventoryDSNRequired is returned when the inventory DSN is missing.
	errInventoryDSNRequired = errors.New("inventory dsn must be provided")
	// errUnknownPanelBackend is returned for an unsupported panel backend.
	errUnknownPanelBackend = errors.New("panel backend must be file or redis")
	// errRedisAddressRequired is returned when the redis backend has no address.
	errRedisAddressRequired = errors.New("redis address must be provided for the redis panel backend")
	// errInvalidQoS is returned for MQTT QoS above 2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
	// errRepeatTooShort is returned when the not-armed repeat is below one minute.
	errRepeatTooShort = errors.New("not_armed_repeat must be zero or at least one minute")
)

// Load reads configuration from path, applies environment overrides and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	applyEnv(&cfg)

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Settings carry database credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks required fields and formats.
//
//nolint:cyclop // A flat list of independent checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	setDefaults(cfg)

	for name, address := range map[string]string{
		"http address":      cfg.HTTPAddress,
		"grpc address":      cfg.GRPCAddress,
		"proserver address": cfg.ProServer.Address,
	} {
		if _, err := net.ResolveTCPAddr("tcp", address); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if cfg.Inventory.DSN == "" {
		return errInventoryDSNRequired
	}

	switch cfg.Panel.Backend {
	case PanelBackendFile:
	case PanelBackendRedis:
		if cfg.Panel.RedisAddress == "" {
			return errRedisAddressRequired
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownPanelBackend, cfg.Panel.Backend)
	}

	if cfg.MQTT.QoS > 2 {
		return errInvalidQoS
	}

	if cfg.NotArmedRepeat != 0 && cfg.NotArmedRepeat < time.Minute {
		return errRepeatTooShort
	}

	return nil
}

func setDefaults(cfg *Config) {
	if cfg.HTTPAddress == "" {
		cfg.HTTPAddress = DefaultHTTPAddress
	}

	if cfg.GRPCAddress == "" {
		cfg.GRPCAddress = DefaultGRPCAddress
	}

	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = DefaultCORSOrigins()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultReconcileInterval
	}

	if cfg.ScheduleDB == "" {
		cfg.ScheduleDB = DefaultScheduleDB
	}

	if cfg.Inventory.BuildingsTTL <= 0 {
		cfg.Inventory.BuildingsTTL = DefaultBuildingsTTL
	}

	if cfg.Panel.Backend == "" {
		cfg.Panel.Backend = PanelBackendFile
	}

	if cfg.Panel.File == "" {
		cfg.Panel.File = DefaultPanelFile
	}

	if cfg.Panel.Key == "" {
		cfg.Panel.Key = DefaultPanelKey
	}

	if cfg.ProServer.Address == "" {
		cfg.ProServer.Address = DefaultProServerAddress
	}

	if cfg.ProServer.Tag == "" {
		cfg.ProServer.Tag = DefaultProServerTag
	}

	if cfg.ProServer.Timeout <= 0 {
		cfg.ProServer.Timeout = DefaultNotifyTimeout
	}

	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}
}

// applyEnv lets PROSERVER_IP and PROSERVER_PORT replace parts of the endpoint.
func applyEnv(cfg *Config) {
	ip, port := os.Getenv(EnvProServerIP), os.Getenv(EnvProServerPort)
	if ip == "" && port == "" {
		return
	}

	address := cfg.ProServer.Address
	if address == "" {
		address = DefaultProServerAddress
	}

	host, currentPort, err := net.SplitHostPort(address)
	if err != nil {
		host, currentPort = address, ""
	}

	if ip != "" {
		host = ip
	}

	if port != "" {
		currentPort = port
	}

	cfg.ProServer.Address = net.JoinHostPort(host, currentPort)
}
