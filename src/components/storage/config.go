package storage

// Default configuration values.
const (
	DefaultPath              = "storage"
	DefaultMaxBlockCacheSize = 1000
)

// Config ...
type Config struct {
	// Path of the database directory, relative to the config directory.
	Path string `mapstructure:"path"`

	// MaxBlockCacheSize is the number of recently used blocks kept in memory.
	MaxBlockCacheSize int `mapstructure:"max_block_cache_size"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		Path:              DefaultPath,
		MaxBlockCacheSize: DefaultMaxBlockCacheSize,
	}
}
