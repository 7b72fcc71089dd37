package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"OfficeSLAMonitor/internal/logger"

	"github.com/joho/godotenv"
)

// Role selects which sections Validate checks.
type Role int

const (
	RoleAPI Role = iota
	RoleMonitor
	RoleDashboard
)

func (r Role) String() string {
	switch r {
	case RoleAPI:
		return "api"
	case RoleMonitor:
		return "monitor"
	case RoleDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	MQTT      MQTTConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Monitor   MonitorConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type MQTTConfig struct {
	Enabled          bool
	Broker           string
	Port             int
	ClientID         string
	Username         string
	Password         string
	StateChangeTopic string
	TickTopic        string
	QoS              byte
	RetainMessages   bool
	KeepAlive        time.Duration
	ConnectTimeout   time.Duration
	AutoReconnect    bool
}

type SecurityConfig struct {
	IngestJWTSecret    string
	IngestTokenTTL     time.Duration
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitPerMinute int
	EnableRateLimit    bool
}

type LoggingConfig struct {
	Level     logger.Level
	Mode      logger.Mode
	FilePath  string
	UseColors bool
}

type MonitorConfig struct {
	OfficesFile     string
	APIBase         string
	PingConcurrency int
	Transport       string
	MaxRetries      int
	RetryBackoff    time.Duration
	RequestTimeout  time.Duration
	MetricsAddr     string
	PingPrivileged  bool
}

type DashboardConfig struct {
	Port          int
	Timezone      string
	APIBase       string
	PollInterval  time.Duration
	LocationsFile string
	FetchTimeout  time.Duration
}

const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
)

var requiredEnvVars = map[Role][]string{
	RoleAPI: {
		"DB_HOST",
		"DB_PORT",
		"DB_USER",
		"DB_PASSWORD",
		"DB_NAME",
	},
	RoleMonitor:   {},
	RoleDashboard: {},
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	cfg := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		MQTT:      loadMQTTConfig(),
		Security:  loadSecurityConfig(),
		Logging:   loadLoggingConfig(),
		Monitor:   loadMonitorConfig(),
		Dashboard: loadDashboardConfig(),
	}

	return cfg, nil
}

func validateRequired(role Role) error {
	var missing []string

	for _, key := range requiredEnvVars[role] {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 8080),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "10s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "sla_admin"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "office_sla"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", "5m"),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:          getEnvAsBool("MQTT_ENABLED", false),
		Broker:           getEnv("MQTT_BROKER", "localhost"),
		Port:             getEnvAsInt("MQTT_PORT", 1883),
		ClientID:         getEnv("MQTT_CLIENT_ID", "office-sla"),
		Username:         getEnv("MQTT_USERNAME", ""),
		Password:         getEnv("MQTT_PASSWORD", ""),
		StateChangeTopic: getEnv("MQTT_STATE_CHANGE_TOPIC", "offices/state_change"),
		TickTopic:        getEnv("MQTT_TICK_TOPIC", "offices/tick"),
		QoS:              byte(getEnvAsInt("MQTT_QOS", 1)),
		RetainMessages:   getEnvAsBool("MQTT_RETAIN", false),
		KeepAlive:        getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout:   getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:    getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadSecurityConfig() SecurityConfig {
	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	methods := getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")

	return SecurityConfig{
		IngestJWTSecret:    getEnv("INGEST_JWT_SECRET", ""),
		IngestTokenTTL:     getEnvAsDuration("INGEST_TOKEN_TTL", "5m"),
		CORSAllowedOrigins: strings.Split(origins, ","),
		CORSAllowedMethods: strings.Split(methods, ","),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 600),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", true),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:     logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		Mode:      logger.ParseMode(getEnv("LOG_MODE", "normal")),
		FilePath:  getEnv("LOG_FILE_PATH", ""),
		UseColors: getEnvAsBool("LOG_USE_COLORS", true),
	}
}

func loadMonitorConfig() MonitorConfig {
	return MonitorConfig{
		OfficesFile:     getEnv("OFFICES_YAML", "offices.yaml"),
		APIBase:         strings.TrimSuffix(getEnv("SLA_API", "http://localhost:8080/api"), "/"),
		PingConcurrency: getEnvAsInt("PING_CONCURRENCY", 20),
		Transport:       strings.ToLower(getEnv("INGEST_TRANSPORT", TransportHTTP)),
		MaxRetries:      getEnvAsInt("INGEST_MAX_RETRIES", 3),
		RetryBackoff:    getEnvAsDuration("INGEST_RETRY_BACKOFF", "500ms"),
		RequestTimeout:  getEnvAsDuration("INGEST_REQUEST_TIMEOUT", "5s"),
		MetricsAddr:     getEnv("MONITOR_METRICS_ADDR", ""),
		PingPrivileged:  getEnvAsBool("PING_PRIVILEGED", false),
	}
}

func loadDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Port:          getEnvAsInt("DASHBOARD_PORT", 8081),
		Timezone:      getEnv("DASHBOARD_TZ", "Local"),
		APIBase:       strings.TrimSuffix(getEnv("DASHBOARD_API_BASE", "http://localhost:8080"), "/"),
		PollInterval:  getEnvAsDuration("DASHBOARD_POLL_INTERVAL", "60s"),
		LocationsFile: getEnv("DASHBOARD_LOCATIONS_FILE", ""),
		FetchTimeout:  getEnvAsDuration("DASHBOARD_FETCH_TIMEOUT", "10s"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// DatabaseURL is the postgres:// form used by the migrator and lib/pq.
func (c *DatabaseConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func (c *Config) Validate(role Role) error {
	if err := validateRequired(role); err != nil {
		return err
	}

	var errors []string

	switch role {
	case RoleAPI:
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD cannot be empty")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			errors = append(errors, "SERVER_PORT must be between 1 and 65535")
		}
	case RoleMonitor:
		if c.Monitor.PingConcurrency < 1 {
			errors = append(errors, "PING_CONCURRENCY must be at least 1")
		}
		if c.Monitor.MaxRetries < 1 {
			errors = append(errors, "INGEST_MAX_RETRIES must be at least 1")
		}
		if c.Monitor.Transport != TransportHTTP && c.Monitor.Transport != TransportMQTT {
			errors = append(errors, "INGEST_TRANSPORT must be http or mqtt")
		}
		if c.Monitor.Transport == TransportMQTT && !c.MQTT.Enabled {
			errors = append(errors, "INGEST_TRANSPORT=mqtt requires MQTT_ENABLED=true")
		}
	case RoleDashboard:
		if c.Dashboard.Port < 1 || c.Dashboard.Port > 65535 {
			errors = append(errors, "DASHBOARD_PORT must be between 1 and 65535")
		}
		if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
			errors = append(errors, "DASHBOARD_TZ must be an IANA time zone")
		}
		if c.Dashboard.PollInterval < time.Second {
			errors = append(errors, "DASHBOARD_POLL_INTERVAL must be at least 1s")
		}
		if _, err := url.ParseRequestURI(c.Dashboard.APIBase); err != nil {
			errors = append(errors, "DASHBOARD_API_BASE must be an absolute URL")
		}
	}

	if c.MQTT.Enabled && (c.MQTT.Port < 1 || c.MQTT.Port > 65535) {
		errors = append(errors, "MQTT_PORT must be between 1 and 65535")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) Print(role Role) {
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║           Office SLA Monitor - Configuration             ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("Role:            %s\n", role)
	fmt.Printf("Environment:     %s\n", c.Server.Environment)
	switch role {
	case RoleAPI:
		fmt.Printf("Server:          %s:%d\n", c.Server.Host, c.Server.Port)
		fmt.Printf("Database:        %s:%d/%s\n", c.Database.Host, c.Database.Port, c.Database.Database)
		fmt.Printf("Ingest auth:     %v\n", c.Security.IngestJWTSecret != "")
	case RoleMonitor:
		fmt.Printf("Offices file:    %s\n", c.Monitor.OfficesFile)
		fmt.Printf("Transport:       %s\n", c.Monitor.Transport)
		fmt.Printf("SLA API:         %s\n", c.Monitor.APIBase)
	case RoleDashboard:
		fmt.Printf("Server:          %s:%d\n", c.Server.Host, c.Dashboard.Port)
		fmt.Printf("Time zone:       %s\n", c.Dashboard.Timezone)
		fmt.Printf("SLA API:         %s\n", c.Dashboard.APIBase)
		fmt.Printf("Poll interval:   %v\n", c.Dashboard.PollInterval)
	}
	if c.MQTT.Enabled {
		fmt.Printf("MQTT Broker:     %s:%d\n", c.MQTT.Broker, c.MQTT.Port)
	}
	fmt.Println("──────────────────────────────────────────────────────────")
}
