/*
Package metrics carries the supervisor's observability surface: the
mutex-guarded Stats collector behind the status file, the Prometheus
collectors it feeds, and the optional /metrics + /healthz listener.

Stats and the Prometheus counters are updated in the same recorder
calls, so the status file and a scrape can never disagree about the
task counts.
*/
package metrics
