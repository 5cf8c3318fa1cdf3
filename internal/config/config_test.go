package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{
		"telegram": {"token": "123:abc", "chat_id": -1001234, "topic_id": 7},
		"ship": {"title": "prod", "update_interval": "10s", "minimum_lines": 2},
		"tail": {"paths": ["/var/log/app/*.log"], "from_start": true},
		"logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}}
	}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.ChatID != -1001234 || cfg.Telegram.TopicID != 7 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Ship.Title != "prod" || cfg.Ship.MinimumLines != 2 {
		t.Fatalf("ship = %+v", cfg.Ship)
	}
	if !cfg.Tail.FromStart || len(cfg.Tail.Paths) != 1 {
		t.Fatalf("tail = %+v", cfg.Tail)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.yaml", `
telegram:
  token: "123:abc"
  chat_id: 42
ship:
  update_interval: 5s
  ignore_match:
    - healthz
tail:
  paths:
    - ./app.log
journal:
  driver: file
  path: ./flushes.jsonl
logging:
  level: info
  console: true
  file:
    enabled: true
    path: ./tglogd.log
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.ChatID != 42 {
		t.Fatalf("chat_id = %d", cfg.Telegram.ChatID)
	}
	if len(cfg.Ship.IgnoreMatch) != 1 || cfg.Ship.IgnoreMatch[0] != "healthz" {
		t.Fatalf("ignore_match = %v", cfg.Ship.IgnoreMatch)
	}
	if cfg.Journal.Driver != "file" {
		t.Fatalf("journal driver = %q", cfg.Journal.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{"telegram": {"token": "t", "chat_id": 1, "bot_name": "x"}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{"telegram": {"token": "t", "chat_id": 1}} {"extra": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "123:abc", ChatID: 5},
			Tail:     TailConfig{Paths: []string{"./a.log"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Telegram.Token = " " }, wantErr: true},
		{name: "missing chat", mutate: func(c *Config) { c.Telegram.ChatID = 0 }, wantErr: true},
		{name: "no tail paths", mutate: func(c *Config) { c.Tail.Paths = nil }, wantErr: true},
		{name: "unknown journal driver", mutate: func(c *Config) { c.Journal.Driver = "redis" }, wantErr: true},
		{name: "journal without path", mutate: func(c *Config) { c.Journal.Driver = "file" }, wantErr: true},
		{name: "bad duration", mutate: func(c *Config) { c.Ship.UpdateInterval = "fast" }, wantErr: true},
		{name: "negative duration", mutate: func(c *Config) { c.Tail.ScanInterval = "-3s" }, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	got, err := ParseDurationField("ship.update_interval", "")
	if err != nil || got != 0 {
		t.Fatalf("empty = %v, %v", got, err)
	}
	got, err = ParseDurationField("ship.update_interval", " 250ms ")
	if err != nil || got != 250*time.Millisecond {
		t.Fatalf("explicit = %v, %v", got, err)
	}
	_, err = ParseDurationField("tail.scan_interval", "fast")
	if err == nil || !strings.Contains(err.Error(), "tail.scan_interval") {
		t.Fatalf("err = %v, want field name in message", err)
	}
	if _, err := ParseDurationField("journal.keep", "-1h"); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestWatchPublishesOnChange(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{"telegram": {"token": "t", "chat_id": 1}, "tail": {"paths": ["a"]}}`)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	// Give the watcher time to arm before mutating the file.
	time.Sleep(300 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"telegram": {"token": "t", "chat_id": 2}, "tail": {"paths": ["a"]}}`), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-ch:
		if cfg.Telegram.ChatID != 2 {
			t.Fatalf("published chat_id = %d, want 2", cfg.Telegram.ChatID)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for config publish")
	}
}
