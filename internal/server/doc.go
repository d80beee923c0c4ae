// Package server implements the read-only HTTP status endpoint for licman
// process groups.
//
// This package provides:
//   - Health endpoint listing the configured process groups
//   - Per-group status: PID file probe plus lifecycle history
//   - Per-IP rate limiting
//   - Structured logging of all HTTP requests
//
// The server integrates with other packages:
//   - internal/supervisor: process group registry and PID probing
//   - internal/history: SQLite-based event history
//
// The server never starts or stops anything; it only reads PID files and
// the history database.
package server
