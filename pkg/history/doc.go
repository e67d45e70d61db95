// Package history persists terminal task outcomes to a local bbolt
// database, one record per (tenant, timestamp). It backs the history
// CLI command and is never consulted for admission decisions.
package history
