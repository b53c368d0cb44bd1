package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config is the wkbl configuration
type Config struct {
	Output  OutputConfig  `mapstructure:"output"`
	Convert ConvertConfig `mapstructure:"convert"`
	Log     LogConfig     `mapstructure:"log"`
}

// OutputConfig contains output settings
type OutputConfig struct {
	MaxRulesPerFile int `mapstructure:"max_rules_per_file" validate:"gte=1,lte=50000"`
}

// ConvertConfig contains filter conversion settings
type ConvertConfig struct {
	SelectorsPerRule int  `mapstructure:"selectors_per_rule" validate:"gte=1,lte=1000"`
	Deduplicate      bool `mapstructure:"deduplicate"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Env   string `mapstructure:"env" validate:"required,oneof=dev prod"`
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
