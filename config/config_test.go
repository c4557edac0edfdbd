package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"registration-bot/internal/booking"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
username: "13800138000"
password: "secret"
hospitalId: "142"
departmentId: "200039602"
dutyCode: "1"
medicareCardId: "abc123"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	assert.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "http://www.114yygh.com", cfg.Service.Domain)
	assert.NotEmpty(t, cfg.Service.Headers["User-Agent"])
	assert.Equal(t, 60, cfg.SMS.RecencySeconds)
	assert.Equal(t, "ABC123", cfg.MedicareCardID, "card id is upper-cased")
	assert.True(t, cfg.AutoChooseEnabled(), "autoChoose defaults to true")
}

func TestValidateReportsMissingFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
username: "13800138000"
password: "secret"
departmentId: "200039602"
dutyCode: "1"
`))
	assert.NoError(t, err)

	err = cfg.Validate()
	assert.ErrorContains(t, err, "hospitalId")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSelectionPolicy(t *testing.T) {
	no := false
	testCases := []struct {
		name   string
		mutate func(*Config)
		want   booking.Policy
	}{
		{
			name:   "default is auto allocation",
			mutate: func(c *Config) {},
			want:   booking.Policy{Kind: booking.AutoAllocate},
		},
		{
			name:   "doctor name pins the choice with fallback",
			mutate: func(c *Config) { c.DoctorName = "张三" },
			want:   booking.Policy{Kind: booking.NamedPreference, Doctor: "张三", Fallback: true},
		},
		{
			name: "doctor name without autoChoose forbids fallback",
			mutate: func(c *Config) {
				c.DoctorName = "张三"
				c.AutoChoose = &no
			},
			want: booking.Policy{Kind: booking.NamedPreference, Doctor: "张三"},
		},
		{
			name:   "autoChoose false alone means manual",
			mutate: func(c *Config) { c.AutoChoose = &no },
			want:   booking.Policy{Kind: booking.Manual},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validConfig))
			assert.NoError(t, err)
			tc.mutate(cfg)
			assert.Equal(t, tc.want, cfg.SelectionPolicy())
		})
	}
}
