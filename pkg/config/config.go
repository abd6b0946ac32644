package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the configuration for a tempo dataset.
type Config struct {
	Template     string            `mapstructure:"template"`
	BaseDir      string            `mapstructure:"base_dir"`
	Placeholders map[string]string `mapstructure:"placeholders"`
	CacheFile    string            `mapstructure:"cache_file"`
	Handlers     HandlersConfig    `mapstructure:"handlers"`
	Exclusions   ExclusionsConfig  `mapstructure:"exclusions"`
	Dispatch     DispatchConfig    `mapstructure:"dispatch"`
}

// HandlersConfig maps file extensions to the handler that reads/writes them.
type HandlersConfig struct {
	Extensions map[string]string `mapstructure:"extensions"`
	CSV        CSVHandlerConfig  `mapstructure:"csv"`
}

// CSVHandlerConfig holds options for the built-in CSV handler.
type CSVHandlerConfig struct {
	Delimiter string `mapstructure:"delimiter"`
}

// ExclusionsConfig lists ignore files and inline patterns applied on top of
// discovery, in addition to whatever .tempoignore files are found under
// BaseDir.
type ExclusionsConfig struct {
	IgnoreFiles []string `mapstructure:"ignore_files"`
	Patterns    []string `mapstructure:"patterns"`
}

// DispatchConfig configures the default worker pool used by Map/IMap.
type DispatchConfig struct {
	MaxWorkers int    `mapstructure:"max_workers"`
	WorkerType string `mapstructure:"worker_type"` // "thread" or "process"
}

var defaultConfig = Config{
	Handlers: HandlersConfig{
		Extensions: map[string]string{
			".csv": "csv",
			".nc":  "netcdf",
			".h5":  "netcdf",
		},
		CSV: CSVHandlerConfig{Delimiter: ","},
	},
	Dispatch: DispatchConfig{
		MaxWorkers: 0, // 0 means runtime.NumCPU()
		WorkerType: "thread",
	},
}

// LoadConfig loads dataset configuration from the first tempo.<ext> file
// found in the current directory, the user's home directory, or the tempo
// config directory (searched in that order; the file's extension selects its
// format), then lets TEMPO_* environment variables override individual keys.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("handlers.extensions", defaultConfig.Handlers.Extensions)
	v.SetDefault("handlers.csv.delimiter", defaultConfig.Handlers.CSV.Delimiter)
	v.SetDefault("dispatch.max_workers", defaultConfig.Dispatch.MaxWorkers)
	v.SetDefault("dispatch.worker_type", defaultConfig.Dispatch.WorkerType)

	v.SetConfigName("tempo")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if configDir, err := GetConfigDir(); err == nil {
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("TEMPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}
	return &config, nil
}

// LoadDatasetConfig loads the global config and then overlays a
// dataset-specific config file (the first of tempo.yaml, tempo.yml,
// tempo.json, .tempo.yaml or .tempo.yml found in the current directory), if
// one is present.
func LoadDatasetConfig() (*Config, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	candidates := []string{"tempo.yaml", "tempo.yml", "tempo.json", ".tempo.yaml", ".tempo.yml"}
	for _, name := range candidates {
		if _, statErr := os.Stat(name); statErr != nil {
			continue
		}
		v := viper.New()
		v.SetConfigFile(name)
		if err := v.ReadInConfig(); err != nil {
			continue
		}
		if err := v.Unmarshal(config); err != nil {
			continue
		}
		break
	}

	return config, nil
}

// EffectiveDelimiter returns the configured CSV delimiter rune, defaulting
// to a comma.
func (c *Config) EffectiveDelimiter() rune {
	if c.Handlers.CSV.Delimiter == "" {
		return ','
	}
	return rune(c.Handlers.CSV.Delimiter[0])
}

// GetTempoHome returns the tempo home directory, honoring TEMPO_HOME.
func GetTempoHome() (string, error) {
	if home := os.Getenv("TEMPO_HOME"); home != "" {
		return home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}
	return filepath.Join(homeDir, ".tempo"), nil
}

// EnsureTempoHome creates the tempo home directory if it doesn't exist.
func EnsureTempoHome() (string, error) {
	homeDir, err := GetTempoHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(homeDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create tempo home directory: %v", err)
	}
	return homeDir, nil
}

// GetCacheDir returns the default directory for dataset file-info caches.
func GetCacheDir() (string, error) {
	homeDir, err := EnsureTempoHome()
	if err != nil {
		return "", err
	}
	cacheDir := filepath.Join(homeDir, "cache")
	if err := os.MkdirAll(cacheDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %v", err)
	}
	return cacheDir, nil
}

// GetLogDir returns the default directory for log output.
func GetLogDir() (string, error) {
	homeDir, err := EnsureTempoHome()
	if err != nil {
		return "", err
	}
	logDir := filepath.Join(homeDir, "logs")
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create log directory: %v", err)
	}
	return logDir, nil
}

// GetConfigDir returns the directory tempo searches for a user-level config
// file after the current directory and $HOME.
func GetConfigDir() (string, error) {
	homeDir, err := EnsureTempoHome()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(homeDir, "config")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %v", err)
	}
	return configDir, nil
}
