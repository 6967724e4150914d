package restserver

// Config ...
type Config struct {
	// Enable starts the server.
	Enable bool `mapstructure:"enable"`

	// Address is the host:port the server listens on.
	Address string `mapstructure:"address"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		Enable:  true,
		Address: "0.0.0.0:8888",
	}
}
