/*
Package supervisor owns the lifecycle of the deployment pipeline.

	Scanner ──► TaskQueue ──► Worker pool ──► (HealthGate, Loader,
	                                           Catalog, Retention)
	                │                               │
	                └──────── Stats ◄───────────────┘
	                            │
	                     Status publisher

Startup validates configuration, probes the graph server, and verifies
the snapshot root before any goroutine is launched; failures there are
fatal and reach the process exit code. After Start, individual task
errors are absorbed into stats and never propagate.

Shutdown is two-phase: the queue closes immediately (queued tasks are
discarded and re-discovered next run), in-flight loads get up to the
configured timeout to finish, and the status file is left reading
"stopped".

The status file is rewritten atomically (temp file + rename) every five
seconds and is the canonical operational surface; the optional
Prometheus listener mirrors the same counters.
*/
package supervisor
