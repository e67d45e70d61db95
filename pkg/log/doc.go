// Package log wraps zerolog with a process-global logger and child-logger
// helpers. Task-related log lines are correlated by (tenant, timestamp)
// via WithSnapshot; long-running components tag themselves with
// WithComponent. Init must run once at startup before any logging.
package log
