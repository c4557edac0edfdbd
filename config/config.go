package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"registration-bot/internal/booking"
)

// Config represents the overall bot configuration.
type Config struct {
	// Account credentials for the scheduling service.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Target identifiers. DutyCode is the half-day session: "1" morning,
	// "2" afternoon. DutyDate may be left blank to book the furthest day
	// of the service's booking window.
	HospitalID   string `yaml:"hospitalId"`
	DepartmentID string `yaml:"departmentId"`
	DutyCode     string `yaml:"dutyCode"`
	DutyDate     string `yaml:"dutyDate"`

	MedicareCardID string `yaml:"medicareCardId"`
	PatientName    string `yaml:"patientName"`

	// DoctorName, when set, pins the selection to that doctor. AutoChoose
	// controls whether the bot may pick a slot on its own; when false the
	// operator chooses from the console.
	DoctorName string `yaml:"doctorName"`
	AutoChoose *bool  `yaml:"autoChoose"`

	// PhoneRelayAddr is the host:port of a REST SMS gateway. Blank means
	// the verification code is typed in by the operator.
	PhoneRelayAddr string `yaml:"phoneRelayAddr"`

	Service ServiceConfig `yaml:"service"`
	SMS     SMSConfig     `yaml:"sms"`
	Journal JournalConfig `yaml:"journal"`
}

// ServiceConfig defines how requests to the scheduling service are made.
type ServiceConfig struct {
	Domain         string            `yaml:"domain"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Timeout        time.Duration     `yaml:"-"` // Ignored by YAML parser
	Headers        map[string]string `yaml:"headers"`
}

// SMSConfig tunes the relay message filter.
type SMSConfig struct {
	// Both markers must appear in a message body for it to qualify.
	ServiceMarker  string `yaml:"service_marker"`
	CodeMarker     string `yaml:"code_marker"`
	RecencySeconds int    `yaml:"recency_seconds"`
}

// JournalConfig configures the optional run journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// The service compares the card id case-sensitively in upper case.
	cfg.MedicareCardID = strings.ToUpper(cfg.MedicareCardID)

	if cfg.Service.Domain == "" {
		cfg.Service.Domain = "http://www.114yygh.com"
	}
	if cfg.Service.TimeoutSeconds <= 0 {
		cfg.Service.TimeoutSeconds = 30
	}
	cfg.Service.Timeout = time.Duration(cfg.Service.TimeoutSeconds) * time.Second

	if cfg.Service.Headers == nil {
		cfg.Service.Headers = map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language":           "zh-CN,zh;q=0.8",
			"Upgrade-Insecure-Requests": "1",
			"User-Agent":                "Mozilla/5.0 (compatible; MSIE 10.0; Windows NT 6.2; Trident/6.0)",
		}
	}

	if cfg.SMS.ServiceMarker == "" {
		cfg.SMS.ServiceMarker = "114预约挂号"
	}
	if cfg.SMS.CodeMarker == "" {
		cfg.SMS.CodeMarker = "短信验证码"
	}
	if cfg.SMS.RecencySeconds <= 0 {
		cfg.SMS.RecencySeconds = 60
	}

	return &cfg, nil
}

// Validate checks the required fields. It must pass before any network
// activity happens.
func (c *Config) Validate() error {
	missing := []string{}
	for _, f := range []struct{ name, value string }{
		{"username", c.Username},
		{"password", c.Password},
		{"hospitalId", c.HospitalID},
		{"departmentId", c.DepartmentID},
		{"dutyCode", c.DutyCode},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// AutoChooseEnabled reports whether the bot may allocate a slot without
// operator input. Defaults to true when unset.
func (c *Config) AutoChooseEnabled() bool {
	return c.AutoChoose == nil || *c.AutoChoose
}

// SelectionPolicy derives the slot selection policy from the configured
// preferences.
func (c *Config) SelectionPolicy() booking.Policy {
	if c.DoctorName != "" {
		return booking.Policy{
			Kind:     booking.NamedPreference,
			Doctor:   c.DoctorName,
			Fallback: c.AutoChooseEnabled(),
		}
	}
	if c.AutoChooseEnabled() {
		return booking.Policy{Kind: booking.AutoAllocate}
	}
	return booking.Policy{Kind: booking.Manual}
}
