package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WorkflowConfig holds the approval-routing thresholds. Amounts are in
// pesos and parsed into decimals at the composition root.
type WorkflowConfig struct {
	HRBudgetThreshold       float64 `mapstructure:"hr_budget_threshold"`
	ExecBudgetThreshold     float64 `mapstructure:"exec_budget_threshold"`
	VehicleDailyQuota       int     `mapstructure:"vehicle_daily_quota"`
	AllowAdminAsComptroller bool    `mapstructure:"allow_admin_as_comptroller"`
	TimeSavedPerSkipDays    float64 `mapstructure:"time_saved_per_skip_days"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/travelink.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Workflow defaults
	viper.SetDefault("workflow.hr_budget_threshold", 5000.0)
	viper.SetDefault("workflow.exec_budget_threshold", 50000.0)
	viper.SetDefault("workflow.vehicle_daily_quota", 5)
	viper.SetDefault("workflow.allow_admin_as_comptroller", true)
	viper.SetDefault("workflow.time_saved_per_skip_days", 0.5)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("workflow.hr_budget_threshold", "HR_BUDGET_THRESHOLD")
	viper.BindEnv("workflow.exec_budget_threshold", "EXEC_BUDGET_THRESHOLD")
	viper.BindEnv("workflow.vehicle_daily_quota", "VEHICLE_DAILY_QUOTA")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Workflow.HRBudgetThreshold < 0 {
		return fmt.Errorf("workflow.hr_budget_threshold must not be negative")
	}
	if c.Workflow.ExecBudgetThreshold < 0 {
		return fmt.Errorf("workflow.exec_budget_threshold must not be negative")
	}
	if c.Workflow.VehicleDailyQuota < 1 {
		return fmt.Errorf("workflow.vehicle_daily_quota must be at least 1")
	}
	if c.Workflow.TimeSavedPerSkipDays < 0 {
		return fmt.Errorf("workflow.time_saved_per_skip_days must not be negative")
	}

	return nil
}
