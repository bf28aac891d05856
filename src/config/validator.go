package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// ErrNoConfigFile is returned when no configuration file exists in any
// standard location.
var ErrNoConfigFile = errors.New("no configuration file found")

// CronParser parses watch schedules: five standard fields or a descriptor.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validator validates configuration values using go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("provider", validateProvider)
	v.RegisterValidation("dataset_path", validateDatasetPath)
	v.RegisterValidation("fraction", validateFraction)
	v.RegisterValidation("cron_spec", validateCronSpec)

	return &Validator{
		validate: v,
	}
}

// Validate validates a complete configuration. The first failing field is
// reported.
func (v *Validator) Validate(config *Config) error {
	if config.Version == "" {
		config.Version = DefaultConfigVersion
	}

	if err := v.validate.Struct(config); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			e := validationErrors[0]
			return ValidationError{
				Field:   strings.TrimPrefix(e.Namespace(), "Config."),
				Message: fmt.Sprintf("%s: validation failed on tag '%s' with value '%v'", strings.TrimPrefix(e.Namespace(), "Config."), e.Tag(), e.Value()),
				Value:   e.Value(),
			}
		}
		return err
	}

	return nil
}

// validateProvider validates API provider values
func validateProvider(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return slices.Contains([]string{ProviderOpenRouter, ProviderGemini}, value)
}

// validateDatasetPath accepts empty values and paths to .csv files.
func validateDatasetPath(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return strings.EqualFold(filepath.Ext(value), ".csv")
}

// validateFraction accepts values in [0, 1].
func validateFraction(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return f >= 0 && f <= 1
}

// validateCronSpec accepts empty values and parseable schedules.
func validateCronSpec(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := CronParser.Parse(value)
	return err == nil
}
