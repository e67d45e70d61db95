/*
Package queue provides the task queue that connects snapshot discovery
to the worker pool.

The queue couples a FIFO buffer with an admission set under a single
mutex. The admission set holds every (tenant, timestamp) ever offered
and never loses a member within a supervisor lifetime, which gives the
scanner idempotent sweeps: rediscovering a snapshot that is queued, in
flight, completed, or abandoned is a no-op.

Two entry points exist on purpose:

  - Offer is the scanner's path and is filtered by the admission set.
  - Requeue is the worker's retry path and bypasses the filter, since
    the retried key is by definition already admitted.

Closing the queue wakes every blocked Take and discards buffered tasks;
they are re-discovered from the filesystem on the next supervisor run.
*/
package queue
