package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses one of the config's Go-duration-string fields,
// naming the offending field in the error. Empty means unset and parses to 0.
func ParseDurationField(field, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: bad duration %q (want Go duration syntax, e.g. \"5s\")", field, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", field, raw)
	}
	return d, nil
}

// Validate checks the fields the daemon cannot run without and the ones whose
// errors would otherwise only surface deep inside a component.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if len(c.Tail.Paths) == 0 {
		return fmt.Errorf("tail.paths must list at least one file or glob")
	}
	for i, p := range c.Tail.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("tail.paths[%d] is empty", i)
		}
	}
	switch c.Journal.Driver {
	case "", "none", "file", "sqlite":
	default:
		return fmt.Errorf("journal.driver: unknown driver %q", c.Journal.Driver)
	}
	if (c.Journal.Driver == "file" || c.Journal.Driver == "sqlite") && strings.TrimSpace(c.Journal.Path) == "" {
		return fmt.Errorf("journal.path is required for driver %q", c.Journal.Driver)
	}

	for _, d := range []struct{ path, raw string }{
		{"ship.update_interval", c.Ship.UpdateInterval},
		{"tail.scan_interval", c.Tail.ScanInterval},
		{"journal.busy_timeout", c.Journal.BusyTimeout},
		{"journal.keep", c.Journal.Keep},
	} {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}
	return nil
}
