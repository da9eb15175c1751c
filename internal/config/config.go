package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "tollsim.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. TOLLSIM_SIMULATION_HORIZON.
const EnvPrefix = "TOLLSIM"

// SimulationConfig holds clock and motion settings.
type SimulationConfig struct {
	StepFraction     float64 `json:"stepFraction" mapstructure:"stepFraction"`
	ArrivalThreshold float64 `json:"arrivalThreshold" mapstructure:"arrivalThreshold"`
	Horizon          int     `json:"horizon" mapstructure:"horizon"`
	Workers          int     `json:"workers" mapstructure:"workers"`
}

// TariffConfig holds toll pricing.
type TariffConfig struct {
	RatePerKm  float64 `json:"ratePerKm" mapstructure:"ratePerKm"`
	MinimumFee float64 `json:"minimumFee" mapstructure:"minimumFee"`
}

// LedgerConfig holds account settings.
type LedgerConfig struct {
	StartingBalance float64 `json:"startingBalance" mapstructure:"startingBalance"`
}

// MemoryConfig holds in-memory/JSON report backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	Export         bool   `json:"export" mapstructure:"export"`
}

// SQLiteConfig holds in-memory SQLite report backend settings
type SQLiteConfig struct {
	DumpPath string `json:"dumpPath" mapstructure:"dumpPath"`
}

// ReportConfig selects and configures the reporting backends.
type ReportConfig struct {
	Backends    []string     `json:"backends" mapstructure:"backends"`
	SummaryRows int          `json:"summaryRows" mapstructure:"summaryRows"`
	BufferSize  int          `json:"bufferSize" mapstructure:"bufferSize"`
	Memory      MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite      SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	URL        string `json:"url" mapstructure:"url"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("simulation.stepFraction", 0.01)
	viper.SetDefault("simulation.arrivalThreshold", 0.001)
	viper.SetDefault("simulation.horizon", 100)
	viper.SetDefault("simulation.workers", 1)

	viper.SetDefault("toll.ratePerKm", 0.05)
	viper.SetDefault("toll.minimumFee", 1.00)

	viper.SetDefault("ledger.startingBalance", 100.0)

	viper.SetDefault("scenario.path", "")

	viper.SetDefault("report.backends", []string{"memory"})
	viper.SetDefault("report.summaryRows", 5)
	viper.SetDefault("report.bufferSize", 0)
	viper.SetDefault("report.memory.outputDir", "./runs")
	viper.SetDefault("report.memory.compressOutput", false)
	viper.SetDefault("report.memory.export", true)
	viper.SetDefault("report.sqlite.dumpPath", "")

	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "tollsim")
	viper.SetDefault("influx.bucket", "tollsim")
	viper.SetDefault("influx.backupPath", "./runs/influx_backup.log.gz")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "tollsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from the JSON file in configDir and sets default
// values. The file is optional. A .env file in configDir is loaded into the
// process environment first, and TOLLSIM_* variables override everything.
func Load(configDir string) error {
	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// UsedFile returns the config file that was read, or "" when running on defaults.
func UsedFile() string {
	return viper.ConfigFileUsed()
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

// GetSimulationConfig returns the simulation section.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		StepFraction:     viper.GetFloat64("simulation.stepFraction"),
		ArrivalThreshold: viper.GetFloat64("simulation.arrivalThreshold"),
		Horizon:          viper.GetInt("simulation.horizon"),
		Workers:          viper.GetInt("simulation.workers"),
	}
}

// GetTariffConfig returns the toll section.
func GetTariffConfig() TariffConfig {
	return TariffConfig{
		RatePerKm:  viper.GetFloat64("toll.ratePerKm"),
		MinimumFee: viper.GetFloat64("toll.minimumFee"),
	}
}

// GetLedgerConfig returns the ledger section.
func GetLedgerConfig() LedgerConfig {
	return LedgerConfig{
		StartingBalance: viper.GetFloat64("ledger.startingBalance"),
	}
}

// GetReportConfig returns the report backend configuration.
func GetReportConfig() ReportConfig {
	return ReportConfig{
		Backends:    viper.GetStringSlice("report.backends"),
		SummaryRows: viper.GetInt("report.summaryRows"),
		BufferSize:  viper.GetInt("report.bufferSize"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("report.memory.outputDir"),
			CompressOutput: viper.GetBool("report.memory.compressOutput"),
			Export:         viper.GetBool("report.memory.export"),
		},
		SQLite: SQLiteConfig{
			DumpPath: viper.GetString("report.sqlite.dumpPath"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		URL:        viper.GetString("influx.url"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
