// Package activity contains Temporal activity implementations for the
// consolidation job.
package activity

// Activity name constants to keep workflow and worker registration in sync.
const (
	ActivityResolveWindow    = "ResolveWindow"
	ActivityRunConsolidation = "RunConsolidation"
	ActivityNotifyDigest     = "NotifyDigest"
)
