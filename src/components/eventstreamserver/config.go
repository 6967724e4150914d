package eventstreamserver

// Config ...
type Config struct {
	// Enable starts the server.
	Enable bool `mapstructure:"enable"`

	// Address is the host:port the server listens on.
	Address string `mapstructure:"address"`

	// EventStreamBufferLength is how many past events are kept for clients
	// resuming with Last-Event-ID.
	EventStreamBufferLength int `mapstructure:"event_stream_buffer_length"`

	// SubscriberBufferSize is how many events may wait for a single client.
	// A client falling further behind is disconnected.
	SubscriberBufferSize int `mapstructure:"subscriber_buffer_size"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		Enable:                  true,
		Address:                 "0.0.0.0:9999",
		EventStreamBufferLength: 5000,
		SubscriberBufferSize:    100,
	}
}
