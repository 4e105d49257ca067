// Package thumbnail implements the tiered thumbnail cache.
//
// Arbitrarily large source images are turned into a bounded set of derived
// assets: one JPEG per (source, item, tier), with three fixed tier widths.
// Cache keys are deterministic sha256 hashes sharded by prefix to bound
// directory fan-out.
//
// # Generation
//
// Generation is singleflighted per cache key, so concurrent requests for the
// same uncached thumbnail share exactly one decode/resize and never race on
// the output path. Source paths are validated against their mounted root
// before any file I/O.
//
// # Maintenance
//
// Cache metadata (creation time, last access, size, access count) survives
// restarts in a JSON file swapped atomically on every persist. A periodic
// sweep evicts least-used-then-oldest entries when the byte budget is
// exceeded, and expires entries idle past a TTL regardless of pressure. An
// idle pregeneration queue warms missing tiers when no recent cache activity
// is observed.
package thumbnail
