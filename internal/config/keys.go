package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/sentrylab/internal/logging"
	"github.com/steveyegge/sentrylab/internal/schedule"
	"github.com/steveyegge/sentrylab/internal/state"
)

// Key describes one configuration key.
type Key struct {
	Key         string // dotted key name (e.g., "gitlab.project_id")
	Description string
	EnvVar      string // environment variable bound to the key
	Secret      bool   // redacted by Settings.Redacted
	Required    bool   // must be non-empty when its section is in use
	Default     string
	Validate    func(string) error
}

// Section returns the part of the key before the first dot.
func (k Key) Section() string {
	s, _, _ := strings.Cut(k.Key, ".")
	return s
}

// Keys defines every configuration key sentrylab understands. The Sentry and
// GitLab variables keep the names the service has always been deployed with.
var Keys = []Key{
	// Sentry
	{
		Key:         "sentry.token",
		Description: "Sentry auth token",
		EnvVar:      "SENTRY_AUTH_TOKEN",
		Secret:      true,
		Required:    true,
	},
	{
		Key:         "sentry.org",
		Description: "Sentry organization slug",
		EnvVar:      "SENTRY_ORG",
		Required:    true,
	},
	{
		Key:         "sentry.project",
		Description: "Sentry project slug",
		EnvVar:      "SENTRY_PROJECT",
		Required:    true,
	},
	{
		Key:         "sentry.api_url",
		Description: "Sentry API base URL",
		EnvVar:      "SENTRY_API_URL",
		Default:     "https://sentry.io/api/0",
		Validate:    validateURL,
	},
	{
		Key:         "sentry.query",
		Description: "Sentry issue search query (empty uses Sentry's default)",
		EnvVar:      "SENTRYLAB_SENTRY_QUERY",
	},
	// GitLab
	{
		Key:         "gitlab.api_url",
		Description: "GitLab base URL, with or without /api/v4",
		EnvVar:      "GITLAB_API_URL",
		Required:    true,
		Validate:    validateURL,
	},
	{
		Key:         "gitlab.token",
		Description: "GitLab private token",
		EnvVar:      "GITLAB_API_TOKEN",
		Secret:      true,
		Required:    true,
	},
	{
		Key:         "gitlab.project_id",
		Description: "GitLab project id or path",
		EnvVar:      "GITLAB_PROJECT_ID",
		Required:    true,
	},
	{
		Key:         "gitlab.labels",
		Description: "Comma-separated labels for mirrored issues",
		EnvVar:      "SENTRYLAB_GITLAB_LABELS",
		Default:     "sentry,bug",
	},
	{
		Key:         "gitlab.insecure_skip_verify",
		Description: "Skip TLS certificate verification for GitLab",
		EnvVar:      "SENTRYLAB_GITLAB_INSECURE_SKIP_VERIFY",
		Default:     "false",
		Validate:    validateBool,
	},
	// Schedule
	{
		Key:         "schedule.times",
		Description: "Comma-separated daily trigger times (HH:MM)",
		EnvVar:      "SENTRYLAB_SCHEDULE_TIMES",
		Default:     strings.Join(schedule.DefaultTimes, ","),
		Validate:    validateTimes,
	},
	{
		Key:         "schedule.timezone",
		Description: "IANA zone for trigger times and descriptions (empty is host local)",
		EnvVar:      "SENTRYLAB_SCHEDULE_TIMEZONE",
		Validate:    validateTimezone,
	},
	{
		Key:         "schedule.overlap",
		Description: "What to do when a trigger fires mid-cycle (skip, allow)",
		EnvVar:      "SENTRYLAB_SCHEDULE_OVERLAP",
		Default:     string(schedule.OverlapSkip),
		Validate:    validateOverlap,
	},
	{
		Key:         "schedule.run_at_start",
		Description: "Run one cycle immediately at startup",
		EnvVar:      "SENTRYLAB_SCHEDULE_RUN_AT_START",
		Default:     "true",
		Validate:    validateBool,
	},
	// State
	{
		Key:         "state.backend",
		Description: "State store backend (json, sqlite, memory)",
		EnvVar:      "SENTRYLAB_STATE_BACKEND",
		Default:     state.BackendJSON,
		Validate:    validateBackend,
	},
	{
		Key:         "state.path",
		Description: "State file or database path",
		EnvVar:      "SENTRYLAB_STATE_PATH",
		Default:     "processed-issues.json",
	},
	// Telemetry
	{
		Key:         "telemetry.enabled",
		Description: "Enable OpenTelemetry tracing and metrics",
		EnvVar:      "SENTRYLAB_OTEL_ENABLED",
		Default:     "false",
		Validate:    validateBool,
	},
	{
		Key:         "telemetry.stdout",
		Description: "Print spans and metrics to stdout",
		EnvVar:      "SENTRYLAB_OTEL_STDOUT",
		Default:     "false",
		Validate:    validateBool,
	},
	{
		Key:         "telemetry.otlp_endpoint",
		Description: "OTLP/HTTP metrics endpoint (host:port or URL)",
		EnvVar:      "OTEL_EXPORTER_OTLP_ENDPOINT",
	},
	// Logging
	{
		Key:         "log.level",
		Description: "Log level (debug, info, warn, error)",
		EnvVar:      "SENTRYLAB_LOG_LEVEL",
		Default:     "info",
		Validate:    validateLogLevel,
	},
	{
		Key:         "log.format",
		Description: "Log format (auto, text, json)",
		EnvVar:      "SENTRYLAB_LOG_FORMAT",
		Default:     logging.FormatAuto,
		Validate:    validateLogFormat,
	},
}

// keyMap is a lookup table built from Keys.
var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Key] = &Keys[i]
	}
}

// LookupKey returns the Key definition, or nil if key is unknown.
func LookupKey(key string) *Key {
	return keyMap[key]
}

// ValidateKey checks whether key is known and value is acceptable for it.
func ValidateKey(key, value string) error {
	k := keyMap[key]
	if k == nil {
		known := make([]string, 0, len(Keys))
		for _, k := range Keys {
			known = append(known, k.Key)
		}
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(known, ", "))
	}
	if k.Validate != nil && value != "" {
		if err := k.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return nil
}

// EnvMap returns a mapping from key to environment variable name.
func EnvMap() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if k.EnvVar != "" {
			m[k.Key] = k.EnvVar
		}
	}
	return m
}

// Validation helpers

func validateURL(value string) error {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return fmt.Errorf("must start with http:// or https://, got %q", value)
	}
	return nil
}

func validateLogLevel(value string) error {
	_, err := logging.ParseLevel(value)
	return err
}

func validateLogFormat(value string) error {
	switch strings.ToLower(value) {
	case logging.FormatAuto, logging.FormatText, logging.FormatJSON:
		return nil
	default:
		return fmt.Errorf("must be one of: auto, text, json; got %q", value)
	}
}

func validateBool(value string) error {
	switch strings.ToLower(value) {
	case "true", "false", "1", "0", "yes", "no":
		return nil
	default:
		return fmt.Errorf("must be true or false, got %q", value)
	}
}

func validateTimes(value string) error {
	_, err := schedule.ParseTimes(splitList(value))
	return err
}

func validateTimezone(value string) error {
	_, err := time.LoadLocation(value)
	return err
}

func validateOverlap(value string) error {
	_, err := schedule.ParseOverlapPolicy(value)
	return err
}

func validateBackend(value string) error {
	switch value {
	case state.BackendJSON, state.BackendSQLite, state.BackendMemory:
		return nil
	default:
		return fmt.Errorf("must be one of: json, sqlite, memory; got %q", value)
	}
}
