// Package alias holds the pure policy functions for blue/green cutover:
// parsing {tenant}-{timestamp} database names, deciding whether a load
// is the tenant's latest (the latest-wins rule), and selecting retention
// victims. Keeping these free of I/O lets the worker and the cleanup CLI
// share one implementation and the tests enumerate edge cases directly.
package alias
