// Package config provides configuration management for tablekit tools.
// Configuration is plain data: it is loaded once by the caller and mapped
// into explicit operation options; nothing in the core reads it globally.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv
const EnvPrefix = "TABLEKIT"

// Default configuration values
const (
	DefaultTotalLabel   = "TOTAL"
	DefaultTotalFiller  = "-"
	DefaultLeftSuffix   = "_x"
	DefaultRightSuffix  = "_y"
	DefaultCSVDelimiter = ","
	DefaultCSVEncoding  = "utf-8"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Config represents the configuration of the tablekit tools
type Config struct {
	// Aggregation
	TotalLabel  string `json:"total_label" yaml:"total_label" envconfig:"TOTAL_LABEL" validate:"required"`    // Label of the total row
	TotalFiller string `json:"total_filler" yaml:"total_filler" envconfig:"TOTAL_FILLER" validate:"required"` // Filler for non-numeric total cells

	// Joins
	LeftSuffix  string `json:"left_suffix" yaml:"left_suffix" envconfig:"LEFT_SUFFIX" validate:"required"`
	RightSuffix string `json:"right_suffix" yaml:"right_suffix" envconfig:"RIGHT_SUFFIX" validate:"required,nefield=LeftSuffix"`

	// CSV input/output
	CSVDelimiter string `json:"csv_delimiter" yaml:"csv_delimiter" envconfig:"CSV_DELIMITER" validate:"len=1"`
	CSVEncoding  string `json:"csv_encoding" yaml:"csv_encoding" envconfig:"CSV_ENCODING" validate:"oneof=utf-8 windows-1252 iso-8859-1"`

	// Logging
	LogLevel       string `json:"log_level" yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat      string `json:"log_format" yaml:"log_format" envconfig:"LOG_FORMAT" validate:"oneof=text json"`
	VerboseLogging bool   `json:"verbose_logging" yaml:"verbose_logging" envconfig:"VERBOSE_LOGGING"` // Forces debug level
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use yaml tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		TotalLabel:     DefaultTotalLabel,
		TotalFiller:    DefaultTotalFiller,
		LeftSuffix:     DefaultLeftSuffix,
		RightSuffix:    DefaultRightSuffix,
		CSVDelimiter:   DefaultCSVDelimiter,
		CSVEncoding:    DefaultCSVEncoding,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		VerboseLogging: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "len":
		return fmt.Sprintf("%s must be exactly %s character(s), got %q", fe.Field(), fe.Param(), fe.Value())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.TotalLabel == "" {
		c.TotalLabel = defaults.TotalLabel
	}
	if c.TotalFiller == "" {
		c.TotalFiller = defaults.TotalFiller
	}
	if c.LeftSuffix == "" {
		c.LeftSuffix = defaults.LeftSuffix
	}
	if c.RightSuffix == "" {
		c.RightSuffix = defaults.RightSuffix
	}
	if c.CSVDelimiter == "" {
		c.CSVDelimiter = defaults.CSVDelimiter
	}
	if c.CSVEncoding == "" {
		c.CSVEncoding = defaults.CSVEncoding
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}

	return c
}

// EffectiveLogLevel returns the log level, raised to debug by VerboseLogging
func (c Config) EffectiveLogLevel() string {
	if c.VerboseLogging {
		return "debug"
	}
	return c.LogLevel
}

// Delimiter returns the CSV delimiter as a rune
func (c Config) Delimiter() rune {
	for _, r := range c.CSVDelimiter {
		return r
	}
	return ','
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from TABLEKIT_* environment variables on top of the defaults
func LoadFromEnv() (Config, error) {
	return applyEnv(NewConfig())
}

func applyEnv(config Config) (Config, error) {
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return Config{}, fmt.Errorf("loading configuration from environment: %w", err)
	}
	return config, nil
}

// Load reads the optional config file, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	config := NewConfig()
	if path != "" {
		fromFile, err := LoadFromFile(path)
		if err != nil {
			return Config{}, err
		}
		config = fromFile
	}

	config, err := applyEnv(config)
	if err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
