// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON lines on stderr, warnings and above by default
//   - Development: colored console output at debug level
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	logger.Component("registry").Info("model deployed", zap.String("uri", uri))
package logging
