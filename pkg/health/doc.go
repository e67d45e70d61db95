/*
Package health implements the pre-flight gate that decides whether the
graph server can safely accept another bulk load.

Checks run in order and short-circuit on the first failure:

 1. Connectivity — a trivial round-trip against the server.
 2. Database count — the one signal available on every edition; at or
    above the cap the load is vetoed.
 3. Heap utilization — used / (used + available) against the threshold.
 4. Page cache utilization — used / max against the threshold.

The memory probes are a precision enhancement, not a requirement: where
the server does not expose them the probe is inconclusive and the gate
stays open. A missing heap probe is noted in the reason string; a missing
page cache probe is skipped without a note. A gate that failed
closed on missing telemetry would stall every community-edition server.

The verdict is advisory. A healthy verdict does not stop the subsequent
load from failing for resource reasons; the worker's retry engine
covers that case.
*/
package health
