package smallnetwork

import "time"

// Default configuration values.
const (
	DefaultBindAddress      = "0.0.0.0:34553"
	DefaultPublicAddress    = "127.0.0.1:34553"
	DefaultMaxMessageSize   = 4 << 20
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultReconnectDelay   = 2 * time.Second
	DefaultDialTimeout      = 2 * time.Second
)

// Config ...
type Config struct {
	// BindAddress is the local address:port the node listens on.
	BindAddress string `mapstructure:"bind_address"`

	// PublicAddress is the address advertised to peers. The listener's
	// address is used when empty.
	PublicAddress string `mapstructure:"public_address"`

	// KnownAddresses are dialed at startup and redialed whenever the
	// connection is lost.
	KnownAddresses []string `mapstructure:"known_addresses"`

	// MaxMessageSize bounds a single frame, in bytes.
	MaxMessageSize int `mapstructure:"max_message_size"`

	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReconnectDelay   time.Duration `mapstructure:"reconnect_delay"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		BindAddress:      DefaultBindAddress,
		PublicAddress:    DefaultPublicAddress,
		MaxMessageSize:   DefaultMaxMessageSize,
		HandshakeTimeout: DefaultHandshakeTimeout,
		ReconnectDelay:   DefaultReconnectDelay,
		DialTimeout:      DefaultDialTimeout,
	}
}
