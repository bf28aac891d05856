package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ConfigMerger merges configuration structs field by field
type ConfigMerger struct{}

func NewConfigMerger() *ConfigMerger {
	return &ConfigMerger{}
}

// Merge returns base with every non-zero field of override applied. Nested
// structs merge recursively; maps merge key by key.
func (cm *ConfigMerger) Merge(base, override *Config) *Config {
	result := *base
	cm.mergeValue(reflect.ValueOf(&result).Elem(), reflect.ValueOf(override).Elem())
	return &result
}

func (cm *ConfigMerger) mergeValue(dst, src reflect.Value) {
	for i := 0; i < src.NumField(); i++ {
		from := src.Field(i)
		to := dst.Field(i)
		if !to.CanSet() {
			continue
		}

		switch from.Kind() {
		case reflect.Struct:
			cm.mergeValue(to, from)
		case reflect.Map:
			if from.Len() == 0 {
				continue
			}
			merged := reflect.MakeMapWithSize(from.Type(), to.Len()+from.Len())
			for _, k := range to.MapKeys() {
				merged.SetMapIndex(k, to.MapIndex(k))
			}
			for _, k := range from.MapKeys() {
				merged.SetMapIndex(k, from.MapIndex(k))
			}
			to.Set(merged)
		default:
			if !from.IsZero() {
				to.Set(from)
			}
		}
	}
}

// ConfigEnvironment provides environment variable handling patterns
type ConfigEnvironment struct {
	prefix string
	getenv func(string) string
}

func NewConfigEnvironment(prefix string) *ConfigEnvironment {
	return &ConfigEnvironment{
		prefix: prefix,
		getenv: os.Getenv,
	}
}

// GetEnvKey returns the variable name for an env tag value.
func (ce *ConfigEnvironment) GetEnvKey(name string) string {
	return fmt.Sprintf("%s_%s", ce.prefix, strings.ToUpper(name))
}

// LoadFromEnv sets every field carrying an env tag whose variable is set.
func (ce *ConfigEnvironment) LoadFromEnv(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config must be a pointer to struct")
	}
	return ce.loadStruct(val.Elem())
}

func (ce *ConfigEnvironment) loadStruct(val reflect.Value) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := ce.loadStruct(field); err != nil {
				return err
			}
			continue
		}

		name, ok := fieldType.Tag.Lookup("env")
		if !ok {
			continue
		}
		envKey := ce.GetEnvKey(name)
		envValue := ce.getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldFromString(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, envKey, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldFromString(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Redacted returns a copy of config with every secret-tagged field blanked.
func Redacted(config *Config) *Config {
	result := *config
	redactValue(reflect.ValueOf(&result).Elem())
	return &result
}

func redactValue(val reflect.Value) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		switch {
		case field.Kind() == reflect.Struct:
			redactValue(field)
		case typ.Field(i).Tag.Get("secret") == "true" && field.Kind() == reflect.String && field.String() != "":
			field.SetString(MaskSecret(field.String()))
		}
	}
}

// MaskSecret keeps the first and last four characters of long secrets.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
