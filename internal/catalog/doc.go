// Package catalog tracks which models are currently reachable.
//
// A Catalog holds an immutable snapshot of model names fetched from a Source
// (a LiteLLM proxy or a static list). Snapshots can be shared between router
// replicas through a Store, and a Scheduler refreshes them on a cron spec.
// The routing package never reads the catalog directly; callers pass the
// snapshot in as the availability set.
package catalog
