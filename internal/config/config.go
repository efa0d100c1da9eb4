// Package config loads sentrylab settings from a YAML file, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// v is the package viper instance, set by Initialize.
var v *viper.Viper

// DotEnvPath is the .env file read by Initialize, relative to the working directory.
var DotEnvPath = ".env"

// Initialize builds the configuration from, lowest precedence first:
// key defaults, the YAML config file, the .env file, then real environment
// variables. configFile may be empty, in which case sentrylab.yaml is looked
// up in the working directory and $XDG_CONFIG_HOME/sentrylab.
func Initialize(configFile string) error {
	nv := viper.New()
	nv.SetConfigType("yaml")

	for _, k := range Keys {
		if k.Default != "" {
			nv.SetDefault(k.Key, k.Default)
		}
		if k.EnvVar != "" {
			if err := nv.BindEnv(k.Key, k.EnvVar); err != nil {
				return fmt.Errorf("bind %s: %w", k.EnvVar, err)
			}
		}
	}

	if configFile != "" {
		nv.SetConfigFile(configFile)
		if err := nv.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		nv.SetConfigName("sentrylab")
		nv.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			nv.AddConfigPath(filepath.Join(dir, "sentrylab"))
		}
		if err := nv.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := loadDotEnv(nv, DotEnvPath); err != nil {
		return err
	}

	v = nv
	return nil
}

// loadDotEnv copies values from a dotenv file into dst for every bound
// variable that is not already set in the real environment.
func loadDotEnv(dst *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	dot := viper.New()
	dot.SetConfigFile(path)
	dot.SetConfigType("env")
	if err := dot.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for _, k := range Keys {
		if k.EnvVar == "" {
			continue
		}
		if _, ok := os.LookupEnv(k.EnvVar); ok {
			continue
		}
		if dot.IsSet(k.EnvVar) {
			dst.Set(k.Key, dot.GetString(k.EnvVar))
		}
	}
	return nil
}

// ResetForTesting clears the package state so tests can re-initialize.
func ResetForTesting() {
	v = nil
}

// ConfigFileUsed returns the YAML file Initialize read, if any.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString returns the value for key, or "" before Initialize.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool returns the value for key, or false before Initialize.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetStringSlice returns a list value. Lists may be written as YAML
// sequences or as comma-separated strings (the only form env vars allow).
func GetStringSlice(key string) []string {
	if v == nil {
		return nil
	}
	switch val := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		return splitList(val)
	case []string:
		return trimAll(val)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return trimAll(out)
	default:
		return splitList(fmt.Sprint(val))
	}
}

// Set overrides a value for the rest of the process (used by CLI flags).
func Set(key string, value any) {
	if v != nil {
		v.Set(key, value)
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return trimAll(strings.Split(s, ","))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
