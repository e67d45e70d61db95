/*
Package loader feeds snapshot data into timestamped databases.

The Loader interface is the seam the worker drives; BoltLoader is the
production implementation, ingesting columnar CSV files over Bolt in
batched UNWIND statements. Before feeding, it clears any partial state
a failed earlier attempt may have left: aliases pointing at the target
database are dropped, then the database itself, then it is recreated.
That makes the worker's retry loop safe even though Load is not
idempotent.

Structural problems in the snapshot (missing directories, malformed
rows, absent id columns) are wrapped in PermanentError so the worker
abandons instead of retrying; everything else is considered transient.
*/
package loader
