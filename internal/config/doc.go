// Package config provides 12-factor configuration management for ai4.
//
// Configuration is loaded from environment variables with sensible defaults.
// Command line flags override environment variables.
//
// Configuration Sections:
//   - Home: base directory holding registry.json and ledger.json
//   - Server: bridge HTTP listen address
//   - Client: remote bridge URL, timeout and retry budget
//   - Billing: default payer and MAT cost per inference
//   - Logging: log level and output format
//   - RateLimit: per-IP and optional global rate limiting for the bridge server
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	layout, err := cfg.Layout()
//
// Environment Variables:
//   - AI4_HOME, AI4_ADDR, AI4_SHUTDOWN_TIMEOUT
//   - AI4_REMOTE, AI4_CLIENT_TIMEOUT, AI4_CLIENT_RETRIES
//   - AI4_PAYER, AI4_INFER_COST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED, RATE_LIMIT_GLOBAL_RPS
package config
