package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing input dir", func(c *Config) { c.InputDir = "" }, "InputDir"},
		{"zero top n", func(c *Config) { c.TopN = 0 }, "TopN"},
		{"bad week start", func(c *Config) { c.WeekStart = "someday" }, "WeekStart"},
		{"negative min year", func(c *Config) { c.MinYear = -1 }, "MinYear"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "Mars/Olympus"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateWeekStartCase(t *testing.T) {
	c := Default()
	c.WeekStart = "Sunday"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if got := c.FirstWeekday(); got != time.Sunday {
		t.Errorf("week start = %s, want Sunday", got)
	}
}

func TestFirstWeekday(t *testing.T) {
	c := Default()
	if got := c.FirstWeekday(); got != time.Monday {
		t.Errorf("default week start = %s", got)
	}
	c.WeekStart = "Sunday"
	if got := c.FirstWeekday(); got != time.Sunday {
		t.Errorf("week start = %s, want Sunday", got)
	}
}
