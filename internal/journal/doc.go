package journal

// Package journal persists the outcome of every delivery attempt batch so an
// operator can reconstruct what was shipped, dropped, or sent as a file after
// the fact.
//
// It currently supports:
//   - Append-only flush records (jsonl or sqlite)
//   - Time-based pruning of old records
