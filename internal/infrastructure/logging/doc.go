// Package logging provides structured logging for heinzelmann.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the hub.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("actor").Info("program finished", "duration", d)
//
// Never log broker passwords or the InfluxDB token. Event payloads are
// logged at info level by the default fallback hook.
package logging
