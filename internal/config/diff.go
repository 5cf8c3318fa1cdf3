package config

import (
	"reflect"
	"sort"
	"strings"

	logx "tglogd/pkg/logx"
)

// SummarizeChange returns (1) a compact list of changed sections and (2) safe
// structured attrs for logging. The bot token is never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	// Telegram (never log token)
	if (strings.TrimSpace(oldCfg.Telegram.Token) != "") != (strings.TrimSpace(newCfg.Telegram.Token) != "") ||
		oldCfg.Telegram.ChatID != newCfg.Telegram.ChatID ||
		oldCfg.Telegram.TopicID != newCfg.Telegram.TopicID {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Int64("telegram.chat_id", newCfg.Telegram.ChatID),
			logx.Int("telegram.topic_id", newCfg.Telegram.TopicID),
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Ship, newCfg.Ship) {
		changed = append(changed, "ship")
		attrs = append(attrs,
			logx.String("ship.title", newCfg.Ship.Title),
			logx.String("ship.update_interval", strings.TrimSpace(newCfg.Ship.UpdateInterval)),
			logx.Int("ship.minimum_lines", newCfg.Ship.MinimumLines),
			logx.Int("ship.pending_logs", newCfg.Ship.PendingLogs),
			logx.Int("ship.ignore_count", len(newCfg.Ship.IgnoreMatch)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Tail, newCfg.Tail) {
		changed = append(changed, "tail")
		attrs = append(attrs,
			logx.Int("tail.path_count", len(newCfg.Tail.Paths)),
			logx.Bool("tail.from_start", newCfg.Tail.FromStart),
		)
	}

	if oldCfg.Journal != newCfg.Journal {
		changed = append(changed, "journal")
		attrs = append(attrs,
			logx.String("journal.driver", strings.TrimSpace(newCfg.Journal.Driver)),
			logx.Bool("journal.path_set", strings.TrimSpace(newCfg.Journal.Path) != ""),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
