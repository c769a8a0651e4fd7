// Package logging provides structured logging configuration for mqttswarm.
//
// This package wraps log/slog so the driver, the workers it spawns and the
// embedded broker all log the same way. Diagnostic output goes to stderr;
// the console lines operators rely on ("Published <message>", spawn banners)
// are written to stdout by the commands themselves and never pass through here.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("worker spawned", "worker", 3, "pid", 41872)
//	logger.Error("connect failed", "error", err)
//
// Worker processes tag their logger with ForWorker so interleaved output from
// many processes stays attributable.
//
// # Integration
//
// Components accept a *slog.Logger in their constructor or options.
// If no logger is provided, they use logging.Nop().
package logging
