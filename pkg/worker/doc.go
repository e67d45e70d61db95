/*
Package worker implements the retry engine that drives each snapshot
task through the deployment pipeline.

# Per-task flow

 1. Health gate. A veto requeues the task after the configured delay
    without attempting the load; vetoes are not failures.
 2. Load. Transient failures retry with exponential backoff
    (base^attempt seconds, capped); permanent failures abandon
    immediately. Health vetoes and load failures share one retry budget.
 3. Alias cutover. The latest-wins rule is evaluated against the live
    catalog, not the task's own timestamp: if a newer deployment is
    already present the alias stays put, so out-of-order completions
    converge to the largest loaded timestamp.
 4. Retention. Databases beyond the keep-newest cap are dropped, never
    the current alias target.

Alias and retention errors after a successful load are logged and
counted but do not re-run the load; convergence catches up on the
tenant's next snapshot.

Workers pull from a shared queue. Each (tenant, timestamp) is a
distinct admission key, so two workers never load the same snapshot;
with several workers, cross-tenant loads proceed in parallel.

Shutdown never interrupts an in-flight load. Stop only cancels backoff
sleeps and pending requeues.
*/
package worker
