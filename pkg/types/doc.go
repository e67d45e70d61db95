/*
Package types defines the shared data model for Switchyard: snapshots,
tasks, worker outcomes, and lifecycle states.

A Snapshot is an immutable directory of columnar files identified by
(tenant, timestamp). Each successful load produces a server-side database
named {tenant}-{timestamp}; the tenant's alias is switched to the database
with the largest loaded timestamp.

State machines:

	Supervisor: init → running → stopping → stopped
	Task:       queued → running → (completed | retrying → queued | abandoned)
	Database:   absent → loading → present → dropped

Types in this package carry no behavior beyond naming helpers; all policy
lives in the packages that consume them.
*/
package types
