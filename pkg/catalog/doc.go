/*
Package catalog is the seam between Switchyard and the graph database
server's administrative surface: database lifecycle, alias management,
and read-only health probes.

Two implementations are provided:

  - Bolt talks to a real Neo4j server over the Bolt protocol. Admin
    commands run against the system database. Database and alias names
    contain dashes, so every identifier is backtick-quoted.
  - Memory is a deterministic in-memory catalog for tests.

All mutating operations are idempotent: repointing an alias to its
current target, creating an existing database, and dropping a missing
database or alias all succeed.

Memory probes (HeapUsage, PagecacheUsage) are best effort. On editions
that do not expose the JMX surface the probe reports unavailable, which
callers must treat as inconclusive rather than unhealthy. The health
gate depends on this: a supervisor pointed at a community-edition server
must not stall merely because memory telemetry is missing.
*/
package catalog
