// Package logship ships application log lines to a Telegram chat.
//
// The Handler plugs into a logging framework as an output sink (io.Writer,
// and zerolog.LevelWriter for zerolog users). Incoming lines pass a substring
// ignore filter, accumulate in an in-memory buffer, and a single background
// loop flushes them on a fixed cadence: the current chat message is edited in
// place while the combined text fits, a fresh message is started when it does
// not, and oversized backlogs are uploaded as a document instead.
//
// Delivery is best-effort and at-least-tried: flood waits and transient
// transport errors are retried a bounded number of times inside the same
// flush, then the batch is dropped with a local diagnostic record. Failures
// never propagate to the logging call site and never re-enter the shipped
// stream.
package logship
