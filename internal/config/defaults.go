package config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:        "tags.db",
			ChunkSize:   "4KiB",
			InitialSize: "64KiB",
			ReadOnly:    false,
			SyncOnClose: true,
			TreeDegree:  8,
			IDCacheSize: 256,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
