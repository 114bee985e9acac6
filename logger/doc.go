// Package logger provides structured logging for the dashboard core
// using zerolog.
//
// It supports multiple output formats (JSON, console), log level
// configuration, and component-scoped loggers with structured fields
// for node, pipeline and execution ids.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("protocol")
//	log.Info("frame sent", logger.Fields("id", 3, "type", 104))
package logger
