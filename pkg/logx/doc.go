// Package logx configures tglogd's internal diagnostics logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//
// logx is deliberately local-only. Delivery failures from the Telegram
// shipping pipeline are reported here and must never re-enter the shipped
// stream, so this package has no Telegram sink.
package logx
