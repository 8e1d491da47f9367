// Package config provides configuration loading and validation for tagstore.
package config

// Config holds the complete configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Logging LogConfig     `yaml:"logging" toml:"logging"`
}

// StorageConfig holds database and index configuration.
type StorageConfig struct {
	// Path is the database file.
	Path string `yaml:"path" toml:"path"`
	// ChunkSize is the file growth granularity, e.g. "4KB".
	ChunkSize string `yaml:"chunkSize" toml:"chunkSize"`
	// InitialSize is the size of a newly created file, e.g. "64KB".
	InitialSize string `yaml:"initialSize" toml:"initialSize"`
	ReadOnly    bool   `yaml:"readOnly" toml:"readOnly"`
	SyncOnClose bool   `yaml:"syncOnClose" toml:"syncOnClose"`
	// TreeDegree is the minimum degree of the index B-trees.
	TreeDegree int `yaml:"treeDegree" toml:"treeDegree"`
	// IDCacheSize is the number of cached tagger id lookups.
	IDCacheSize int `yaml:"idCacheSize" toml:"idCacheSize"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output" toml:"output"`
}
