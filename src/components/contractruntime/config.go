package contractruntime

// Default configuration values.
const (
	DefaultMaxGlobalStateSize = 8 << 30
	DefaultMaxReaders         = 512
)

// Config ...
type Config struct {
	// MaxGlobalStateSize caps the on-disk size of global state, in bytes.
	// Execution that would grow the state past it is fatal.
	MaxGlobalStateSize int64 `mapstructure:"max_global_state_size"`

	// MaxReaders bounds concurrent balance queries.
	MaxReaders int `mapstructure:"max_readers"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		MaxGlobalStateSize: DefaultMaxGlobalStateSize,
		MaxReaders:         DefaultMaxReaders,
	}
}
