// Package inventory keeps the picture inventory fresh.
//
// It reconciles configured data sources (local folders, paginated remote
// APIs, server-mounted folders, and storage buckets) against the durable
// picture table, applying the minimal source-scoped changeset each pass
// produces. Server roots are watched for filesystem changes, which coalesce
// into a single debounced rescan.
//
// # Scope Isolation
//
// A reconciliation pass only ever deletes records belonging to sources inside
// its scan scope, and only for sources whose walk completed. A source whose
// walk fails keeps all of its existing records.
//
// # Snapshot
//
// The server-source inventory is additionally persisted to a snapshot file so
// a fresh boot can serve pictures before the first full rescan finishes.
package inventory
