package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

const CurrentVersion = "1"

// Config represents the complete configuration structure
type Config struct {
	Version string        `yaml:"version" default:"1"`
	Site    SiteConfig    `yaml:"site"`
	Server  ServerConfig  `yaml:"server"`
	Editor  EditorConfig  `yaml:"editor"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Acme Studio"`
	Description string `yaml:"description" default:"We build things people like"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600" validate:"required,numeric"`
}

type EditorConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
	// TruncateLength bounds how many characters of each value the confirmation shows.
	TruncateLength int `yaml:"truncate_length" default:"80" validate:"gte=0"`
	// LoadTimeout bounds how long a page render waits for section content.
	LoadTimeout    time.Duration `yaml:"load_timeout" default:"750ms" validate:"gt=0"`
	MaxValueLength int           `yaml:"max_value_length" default:"4096" validate:"gte=0"`
	// Sections optionally restricts editable fields, e.g. {hero: [title, subtitle]}.
	Sections map[string][]string `yaml:"sections"`
}

type BackendConfig struct {
	Type          string        `yaml:"type" default:"sqlite" validate:"oneof=memory sqlite fs s3"`
	SQLitePath    string        `yaml:"sqlite_path" default:"./content.db"`
	Compression   string        `yaml:"compression" default:"zstd" validate:"oneof=zstd gzip"`
	ContentPath   string        `yaml:"content_path" default:"./content"`
	S3Bucket      string        `yaml:"s3_bucket" default:"" validate:"required_if=Type s3"`
	S3Endpoint    string        `yaml:"s3_endpoint" default:""`
	S3Prefix      string        `yaml:"s3_prefix" default:"sections/"`
	WatchInterval time.Duration `yaml:"watch_interval" default:"10s" validate:"gt=0"`
}

type AuthConfig struct {
	Type        string   `yaml:"type" default:"ed25519" validate:"oneof=ed25519 clerk none"`
	AdminUserID string   `yaml:"admin_user_id" default:"admin"`
	ClerkAdmins []string `yaml:"clerk_admins"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate rejects configurations the server cannot run with. Field errors name the
// YAML path, e.g. "backend.type".
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported configuration version %q", c.Version)
	}

	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("unsupported %s %q (supported: %s)", path, fe.Value(), fe.Param()))
		case "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required when %s", path, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", path, fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		if field.Type() == durationType {
			if val, err := time.ParseDuration(defaultValue); err == nil {
				field.SetInt(int64(val))
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
