// Package config manages application configuration for the Muster API.
//
// Configuration is read from environment variables with
// github.com/caarlos0/env and then checked by Validate, which reports every
// problem at once:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// # Environment Variables
//
//	SERVER_PORT              - HTTP server port (default: 8080)
//	SERVER_ENV               - development, production or test
//	CORS_ALLOWED_ORIGINS     - comma separated origins
//	LOG_LEVEL                - debug, info, warn or error
//	JWT_PUBLIC_KEY_PATH      - RS256 public key used to validate tokens
//	JWT_ISSUER               - expected token issuer
//	EMAIL_ENABLED            - send promotion e-mails through Resend
//	RESEND_API_KEY           - Resend API key
//	SWEEPER_CLOSED_RETENTION - how long closed rosters are kept
//	SWEEPER_MAX_AGE          - how long any roster is kept
//	OTEL_EXPORTER_ENDPOINT   - OTLP/HTTP endpoint; tracing is off when empty
package config
