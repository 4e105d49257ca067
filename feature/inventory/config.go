package inventory

// Config holds configuration for source scanning and watching.
type Config struct {
	// Enabled toggles the whole inventory feature.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// MountRoot is the conventional mount root whose immediate subdirectories
	// become server sources when Sources is empty.
	MountRoot string `mapstructure:"mount_root" default:"/pictures"`
	// Sources is an explicit source mapping, "Name=/path" pairs separated by
	// commas. Overrides auto-discovery when non-empty.
	Sources string `mapstructure:"sources" default:""`
	// SnapshotPath is the inventory-cache snapshot file for server sources.
	SnapshotPath string `mapstructure:"snapshot_path" default:"./cache/inventory.json"`
	// ScanOnStart triggers a server-source scan right after boot.
	ScanOnStart bool `mapstructure:"scan_on_start" default:"true"`
	// WatchEnabled turns on filesystem change watching for server roots.
	WatchEnabled bool `mapstructure:"watch_enabled" default:"true"`
	// DebounceSeconds is the quiet period before a watched change triggers a
	// rescan.
	DebounceSeconds int `mapstructure:"debounce_seconds" default:"5"`
}
