package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Section names for Settings.Validate.
const (
	SectionSentry = "sentry"
	SectionGitLab = "gitlab"
)

// Settings is the typed view of the configuration.
type Settings struct {
	Sentry    SentrySettings    `yaml:"sentry"`
	GitLab    GitLabSettings    `yaml:"gitlab"`
	Schedule  ScheduleSettings  `yaml:"schedule"`
	State     StateSettings     `yaml:"state"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
	Log       LogSettings       `yaml:"log"`
}

type SentrySettings struct {
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Project string `yaml:"project"`
	APIURL  string `yaml:"api_url"`
	Query   string `yaml:"query,omitempty"`
}

type GitLabSettings struct {
	APIURL             string   `yaml:"api_url"`
	Token              string   `yaml:"token"`
	ProjectID          string   `yaml:"project_id"`
	Labels             []string `yaml:"labels"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

type ScheduleSettings struct {
	Times      []string `yaml:"times"`
	Timezone   string   `yaml:"timezone,omitempty"`
	Overlap    string   `yaml:"overlap"`
	RunAtStart bool     `yaml:"run_at_start"`
}

type StateSettings struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type TelemetrySettings struct {
	Enabled      bool   `yaml:"enabled"`
	Stdout       bool   `yaml:"stdout"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the current configuration. Initialize must have been called.
func Load() (*Settings, error) {
	if v == nil {
		return nil, errors.New("config not initialized")
	}
	return &Settings{
		Sentry: SentrySettings{
			Token:   GetString("sentry.token"),
			Org:     GetString("sentry.org"),
			Project: GetString("sentry.project"),
			APIURL:  GetString("sentry.api_url"),
			Query:   GetString("sentry.query"),
		},
		GitLab: GitLabSettings{
			APIURL:             GetString("gitlab.api_url"),
			Token:              GetString("gitlab.token"),
			ProjectID:          GetString("gitlab.project_id"),
			Labels:             GetStringSlice("gitlab.labels"),
			InsecureSkipVerify: GetBool("gitlab.insecure_skip_verify"),
		},
		Schedule: ScheduleSettings{
			Times:      GetStringSlice("schedule.times"),
			Timezone:   GetString("schedule.timezone"),
			Overlap:    GetString("schedule.overlap"),
			RunAtStart: GetBool("schedule.run_at_start"),
		},
		State: StateSettings{
			Backend: GetString("state.backend"),
			Path:    GetString("state.path"),
		},
		Telemetry: TelemetrySettings{
			Enabled:      GetBool("telemetry.enabled"),
			Stdout:       GetBool("telemetry.stdout"),
			OTLPEndpoint: GetString("telemetry.otlp_endpoint"),
		},
		Log: LogSettings{
			Level:  GetString("log.level"),
			Format: GetString("log.format"),
		},
	}, nil
}

// Validate checks every set value and, for each named section, that its
// required keys are present. gl-close only needs the gitlab section; the
// poller needs both.
func (s *Settings) Validate(sections ...string) error {
	values := s.flatten()
	var errs []error
	for _, k := range Keys {
		val := values[k.Key]
		if k.Required && val == "" && slices.Contains(sections, k.Section()) {
			errs = append(errs, fmt.Errorf("%s is required (set %s)", k.Key, k.EnvVar))
			continue
		}
		if err := ValidateKey(k.Key, val); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Location returns the configured schedule zone, or time.Local when unset.
func (s *Settings) Location() (*time.Location, error) {
	if s.Schedule.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Schedule.Timezone)
}

// Redacted returns a copy with secret values masked.
func (s *Settings) Redacted() Settings {
	out := *s
	out.Sentry.Token = mask(s.Sentry.Token)
	out.GitLab.Token = mask(s.GitLab.Token)
	return out
}

// YAML renders the redacted settings.
func (s *Settings) YAML() ([]byte, error) {
	r := s.Redacted()
	return yaml.Marshal(&r)
}

// flatten maps each key to its string form, matching the Keys table.
func (s *Settings) flatten() map[string]string {
	return map[string]string{
		"sentry.token":                s.Sentry.Token,
		"sentry.org":                  s.Sentry.Org,
		"sentry.project":              s.Sentry.Project,
		"sentry.api_url":              s.Sentry.APIURL,
		"sentry.query":                s.Sentry.Query,
		"gitlab.api_url":              s.GitLab.APIURL,
		"gitlab.token":                s.GitLab.Token,
		"gitlab.project_id":           s.GitLab.ProjectID,
		"gitlab.labels":               strings.Join(s.GitLab.Labels, ","),
		"gitlab.insecure_skip_verify": fmt.Sprint(s.GitLab.InsecureSkipVerify),
		"schedule.times":              strings.Join(s.Schedule.Times, ","),
		"schedule.timezone":           s.Schedule.Timezone,
		"schedule.overlap":            s.Schedule.Overlap,
		"schedule.run_at_start":       fmt.Sprint(s.Schedule.RunAtStart),
		"state.backend":               s.State.Backend,
		"state.path":                  s.State.Path,
		"telemetry.enabled":           fmt.Sprint(s.Telemetry.Enabled),
		"telemetry.stdout":            fmt.Sprint(s.Telemetry.Stdout),
		"telemetry.otlp_endpoint":     s.Telemetry.OTLPEndpoint,
		"log.level":                   s.Log.Level,
		"log.format":                  s.Log.Format,
	}
}

// mask keeps the last four characters of long secrets.
func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}
