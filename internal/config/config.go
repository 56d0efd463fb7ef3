// Package config loads harnessctl settings from flags, environment and an
// optional harnessgraph.yaml file using viper.
//
// Precedence (highest first): explicit flag, HARNESSGRAPH_* environment
// variable, config file, default. A missing config file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/letwinventory/harnessgraph/internal/graph"
	"github.com/letwinventory/harnessgraph/internal/logging"
)

const (
	configFileName = "harnessgraph"
	configFileType = "yaml"
	envPrefix      = "HARNESSGRAPH"
)

// Config keys.
const (
	KeyDBPath             = "db.path"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
	KeyActor              = "actor"
	KeyHTTPAddr           = "http.addr"
	KeyParentIndex        = "graph.parent_index"
	KeyCascadeMaxDepth    = "cascade.max_depth"
	KeySubDataConcurrency = "subdata.concurrency"
)

// Config is the resolved configuration.
type Config struct {
	DBPath             string
	LogLevel           string
	LogFormat          string
	Actor              string
	HTTPAddr           string
	ParentIndex        graph.ParentMode
	CascadeMaxDepth    int
	SubDataConcurrency int

	// File is the config file that was read, or "" when none was found.
	File string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPath, "harnessgraph.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, logging.FormatText)
	v.SetDefault(KeyActor, "")
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyParentIndex, string(graph.ParentsIndexed))
	v.SetDefault(KeyCascadeMaxDepth, 64)
	v.SetDefault(KeySubDataConcurrency, 8)
}

// NewViper returns a viper instance with defaults and environment binding.
// Nested keys map to env names with "_" (db.path -> HARNESSGRAPH_DB_PATH).
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file and resolves a Config. When file is empty,
// harnessgraph.yaml is searched in the working directory and
// $HOME/.config/harnessgraph.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "harnessgraph"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DBPath:             v.GetString(KeyDBPath),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          v.GetString(KeyLogFormat),
		Actor:              v.GetString(KeyActor),
		HTTPAddr:           v.GetString(KeyHTTPAddr),
		ParentIndex:        graph.ParentMode(v.GetString(KeyParentIndex)),
		CascadeMaxDepth:    v.GetInt(KeyCascadeMaxDepth),
		SubDataConcurrency: v.GetInt(KeySubDataConcurrency),
		File:               v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyDBPath))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyLogLevel, err))
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("%s must be text or json, got %q", KeyLogFormat, c.LogFormat))
	}
	if !c.ParentIndex.Valid() {
		errs = append(errs, fmt.Errorf("%s must be index or scan, got %q", KeyParentIndex, c.ParentIndex))
	}
	if c.CascadeMaxDepth < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyCascadeMaxDepth))
	}
	if c.SubDataConcurrency < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeySubDataConcurrency))
	}
	return errors.Join(errs...)
}
