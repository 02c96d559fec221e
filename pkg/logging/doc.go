// Package logging provides structured logging configuration for stubd.
//
// This package wraps log/slog so that the stub portal, the admin portal and
// the CLI share one level and format setting.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("stubs portal started", "port", 8882)
//	logger.Warn("recording failed", "url", target, "error", err)
//
// Components accept a *slog.Logger through an option or setter and fall back
// to logging.Nop() when none is given.
package logging
