// Package config loads the service configuration. Defaults come from
// domain.DefaultConfig and are overlaid by an optional YAML file and
// HERON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/opensource-finance/heron/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. HERON_SERVER_PORT.
const EnvPrefix = "HERON"

// FileEnv names the variable holding an optional config file path.
const FileEnv = "HERON_CONFIG"

// Load reads .env (if present), then the config file named by HERON_CONFIG
// (if set), then the environment.
func Load() (*domain.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile builds the configuration from defaults, the file at path
// (skipped when empty) and the environment.
func LoadFile(path string) (*domain.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, "", reflect.ValueOf(*domain.DefaultConfig()))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every leaf of the default config under its
// mapstructure key. AutomaticEnv only resolves keys viper already knows.
func setDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name := field.Tag.Get("mapstructure")
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			setDefaults(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}
