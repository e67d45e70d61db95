/*
Package scanner discovers tenant snapshots on shared storage.

Expected layout:

	{root}/{tenant}/{timestamp}/nodes/{label}/...
	{root}/{tenant}/{timestamp}/relationships/{type}/...

A snapshot qualifies only when both nodes/ and relationships/ exist and
contain at least one entry; anything else is treated as a write still
in progress and silently skipped until a later sweep. Directory names
that do not parse as integers are not snapshots.

The scanner deliberately polls rather than watching for filesystem
events: snapshot cadence is minutes, and polling behaves identically on
local disks and network shares where inotify is unreliable.
*/
package scanner
