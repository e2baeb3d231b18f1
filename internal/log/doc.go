// Package log provides terminal-safe logging built on top of the standard
// slog package.
//
// Registry tokens are arbitrary bytes. Logging one verbatim can inject
// escape sequences into the terminal or split a log line in two, so the
// SafeHandler rewrites string attributes before they reach the underlying
// handler:
//   - control characters and DEL are written as \xNN (\n, \t and \r as
//     their usual escapes)
//   - invalid UTF-8 bytes are written as \xNN
//   - values longer than MaxValueLen characters are truncated with "..."
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("token", "id", tok.ID, "text", tok.Text.String())
package log
