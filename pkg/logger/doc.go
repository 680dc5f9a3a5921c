// Package logger provides structured logging for the storefront service.
//
// The package implements the core.Logger contract with a small,
// production-ready logger supporting JSON and text output, configurable
// levels, and child loggers with persistent fields.
//
// # Structured Logging
//
// All log methods accept structured fields for rich context:
//
//	logger.Info("Cart item added", map[string]interface{}{
//	    "cart_id":    "abc-123",
//	    "product_id": "p-42",
//	    "quantity":   2,
//	})
//
// # Contextual Logging
//
// Create child loggers with persistent fields:
//
//	cartLogger := logger.WithFields(map[string]interface{}{
//	    "cart_id": cartID,
//	})
//
// # Configuration
//
// Loggers can be configured through environment variables:
//   - LOG_LEVEL: Minimum log level (debug, info, warn, error)
//   - LOG_FORMAT: Output format (json, text)
//
// # Best Practices
//
//   - Use appropriate log levels to control verbosity
//   - Include relevant context through structured fields
//   - Avoid logging sensitive information (tokens, PII)
package logger
