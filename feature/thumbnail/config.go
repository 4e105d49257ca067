package thumbnail

// Config holds configuration for the thumbnail cache.
type Config struct {
	// Enabled toggles the whole thumbnail feature.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// CacheDir is the sharded on-disk thumbnail cache.
	CacheDir string `mapstructure:"cache_dir" default:"./cache/thumbs"`
	// MetadataPath is the durable cache metadata file.
	MetadataPath string `mapstructure:"metadata_path" default:"./cache/thumbs/metadata.json"`
	// BudgetMB is the cache byte budget in megabytes.
	BudgetMB int `mapstructure:"budget_mb" default:"1024"`
	// TTLHours evicts entries not accessed for this long regardless of
	// budget pressure.
	TTLHours int `mapstructure:"ttl_hours" default:"168"`
	// SweepIntervalHours is the period of the eviction sweep.
	SweepIntervalHours int `mapstructure:"sweep_interval_hours" default:"6"`
	// JPEGQuality is the re-encode quality of generated thumbnails.
	JPEGQuality int `mapstructure:"jpeg_quality" default:"80"`
	// PregenEnabled turns on idle pregeneration.
	PregenEnabled bool `mapstructure:"pregen_enabled" default:"true"`
	// PregenIntervalSeconds is the period of the idle pregeneration driver.
	PregenIntervalSeconds int `mapstructure:"pregen_interval_seconds" default:"30"`
	// PregenBatchSize is how many inventory items one idle batch covers.
	PregenBatchSize int `mapstructure:"pregen_batch_size" default:"8"`
	// PregenIdleSeconds is the quiet window required before a batch runs.
	PregenIdleSeconds int `mapstructure:"pregen_idle_seconds" default:"10"`
}
