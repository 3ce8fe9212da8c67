package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "fc2observ.cfg.json"

// ErrNoConfigFile is returned by Load when the config directory has no config file.
// Defaults are still applied in that case.
var ErrNoConfigFile = errors.New("no config file found")

// PollerConfig holds snapshot polling settings
type PollerConfig struct {
	Interval           time.Duration
	URL                string
	Timeout            time.Duration
	RequireLocalPlayer bool
}

// GSIConfig holds the push receiver listen address
type GSIConfig struct {
	Host string
	Port int
}

// Addr returns host:port for net/http.
func (c GSIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MapsConfig selects where map calibration data is read from
type MapsConfig struct {
	Source     string // file, sqlite or postgres
	Dir        string
	SQLitePath string
	Preload    []string
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN builds a libpq style connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// RadarConfig controls projection of player positions onto the radar
type RadarConfig struct {
	Enabled     bool
	TrailLength int
}

// WebsocketConfig holds the overlay websocket sink settings
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// MQTTConfig holds the broadcast MQTT sink settings
type MQTTConfig struct {
	Broker      string `json:"broker" mapstructure:"broker"`
	ClientID    string `json:"clientId" mapstructure:"clientId"`
	TopicPrefix string `json:"topicPrefix" mapstructure:"topicPrefix"`
}

// OutputConfig lists the enabled event sinks
type OutputConfig struct {
	Stdout    bool
	Websocket WebsocketConfig
	MQTT      MQTTConfig
}

// InfluxConfig holds InfluxDB metrics settings
type InfluxConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// LogConfig holds log level and rotation settings
type LogConfig struct {
	Level      string
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// MonitorConfig holds status monitor settings
type MonitorConfig struct {
	StatusFile string
	Interval   time.Duration
}

// SetDefaults registers every default value. Load calls it; tests may call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("log.maxSizeMB", 10)
	viper.SetDefault("log.maxBackups", 3)
	viper.SetDefault("log.maxAgeDays", 7)

	viper.SetDefault("poller.interval", "100ms")
	viper.SetDefault("poller.url", "http://127.0.0.1:9283/luar?no_debug")
	viper.SetDefault("poller.timeout", "500ms")
	viper.SetDefault("poller.requireLocalPlayer", false)

	viper.SetDefault("gsi.host", "127.0.0.1")
	viper.SetDefault("gsi.port", 36363)

	viper.SetDefault("maps.source", "file")
	viper.SetDefault("maps.dir", "./maps")
	viper.SetDefault("maps.sqlitePath", "./maps.db")
	viper.SetDefault("maps.preload", []string{})

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fc2observ")

	viper.SetDefault("radar.enabled", true)
	viper.SetDefault("radar.trailLength", 30)

	viper.SetDefault("output.stdout", true)
	viper.SetDefault("output.websocket.url", "")
	viper.SetDefault("output.websocket.secret", "")
	viper.SetDefault("output.mqtt.broker", "")
	viper.SetDefault("output.mqtt.clientId", "fc2observ")
	viper.SetDefault("output.mqtt.topicPrefix", "fc2observ")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "fc2observ")
	viper.SetDefault("influx.bucket", "observer_performance")
	viper.SetDefault("influx.backupPath", "./logs/influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fc2observ")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.statusFile", "./status.json")
	viper.SetDefault("monitor.interval", "1s")
}

// Load reads configuration from the JSON file in configDir and sets default values.
// A missing file is reported as ErrNoConfigFile; the caller decides whether that is fatal.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix("FC2OBSERV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w in %s", ErrNoConfigFile, configDir)
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

func GetPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:           viper.GetDuration("poller.interval"),
		URL:                viper.GetString("poller.url"),
		Timeout:            viper.GetDuration("poller.timeout"),
		RequireLocalPlayer: viper.GetBool("poller.requireLocalPlayer"),
	}
}

func GetGSIConfig() GSIConfig {
	return GSIConfig{
		Host: viper.GetString("gsi.host"),
		Port: viper.GetInt("gsi.port"),
	}
}

func GetMapsConfig() MapsConfig {
	return MapsConfig{
		Source:     viper.GetString("maps.source"),
		Dir:        viper.GetString("maps.dir"),
		SQLitePath: viper.GetString("maps.sqlitePath"),
		Preload:    viper.GetStringSlice("maps.preload"),
	}
}

func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

func GetRadarConfig() RadarConfig {
	return RadarConfig{
		Enabled:     viper.GetBool("radar.enabled"),
		TrailLength: viper.GetInt("radar.trailLength"),
	}
}

func GetOutputConfig() OutputConfig {
	return OutputConfig{
		Stdout: viper.GetBool("output.stdout"),
		Websocket: WebsocketConfig{
			URL:    viper.GetString("output.websocket.url"),
			Secret: viper.GetString("output.websocket.secret"),
		},
		MQTT: MQTTConfig{
			Broker:      viper.GetString("output.mqtt.broker"),
			ClientID:    viper.GetString("output.mqtt.clientId"),
			TopicPrefix: viper.GetString("output.mqtt.topicPrefix"),
		},
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		URL:        viper.GetString("influx.url"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetLogConfig() LogConfig {
	return LogConfig{
		Level:      viper.GetString("logLevel"),
		Dir:        viper.GetString("logsDir"),
		MaxSizeMB:  viper.GetInt("log.maxSizeMB"),
		MaxBackups: viper.GetInt("log.maxBackups"),
		MaxAgeDays: viper.GetInt("log.maxAgeDays"),
	}
}

func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		StatusFile: viper.GetString("monitor.statusFile"),
		Interval:   viper.GetDuration("monitor.interval"),
	}
}
