package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/blockproposer"
	"github.com/shivlim/casper-node/src/components/blockvalidator"
	"github.com/shivlim/casper-node/src/components/consensus"
	"github.com/shivlim/casper-node/src/components/contractruntime"
	"github.com/shivlim/casper-node/src/components/deployacceptor"
	"github.com/shivlim/casper-node/src/components/eventstreamserver"
	"github.com/shivlim/casper-node/src/components/gossiper"
	"github.com/shivlim/casper-node/src/components/restserver"
	"github.com/shivlim/casper-node/src/components/rpcserver"
	"github.com/shivlim/casper-node/src/components/smallnetwork"
	"github.com/shivlim/casper-node/src/components/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultConfigName is the name, without extension, of the config file
	// looked up in the config directory.
	DefaultConfigName = "config"

	// DefaultChainspecFile ...
	DefaultChainspecFile = "chainspec.toml"

	// DefaultSecretKeyFile is the default name of the file containing the
	// validator's private key.
	DefaultSecretKeyFile = "secret_key"
)

// DefaultLogLevel ...
const DefaultLogLevel = "info"

// NodeConfig holds the node section of the config.
type NodeConfig struct {
	// ChainspecConfigPath is the chainspec TOML file.
	ChainspecConfigPath string `mapstructure:"chainspec_config_path" validate:"required"`

	// SecretKeyPath is the validator key. A node without one follows the
	// chain but never proposes.
	SecretKeyPath string `mapstructure:"secret_key_path"`

	// RngSeed makes the node's randomness reproducible.
	RngSeed *uint64 `mapstructure:"rng_seed"`
}

// LoggingConfig holds the logging section of the config.
type LoggingConfig struct {
	// Level determines the chattiness of the log output.
	Level string `mapstructure:"level" validate:"oneof=debug info warn error fatal panic"`

	// Format is "text" or "json".
	Format string `mapstructure:"format" validate:"oneof=text json"`

	// File, if set, receives a copy of every entry at Level or above.
	File string `mapstructure:"file"`
}

// Config contains all the configuration properties of a node.
type Config struct {
	Node              NodeConfig               `mapstructure:"node"`
	Logging           LoggingConfig            `mapstructure:"logging"`
	Storage           storage.Config           `mapstructure:"storage"`
	ContractRuntime   contractruntime.Config   `mapstructure:"contract_runtime"`
	Network           smallnetwork.Config      `mapstructure:"network"`
	Consensus         consensus.Config         `mapstructure:"consensus"`
	BlockProposer     blockproposer.Config     `mapstructure:"block_proposer"`
	BlockValidator    blockvalidator.Config    `mapstructure:"block_validator"`
	DeployAcceptor    deployacceptor.Config    `mapstructure:"deploy_acceptor"`
	Gossip            gossiper.Config          `mapstructure:"gossip"`
	RestServer        restserver.Config        `mapstructure:"rest_server"`
	RpcServer         rpcserver.Config         `mapstructure:"rpc_server"`
	EventStreamServer eventstreamserver.Config `mapstructure:"event_stream_server"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ChainspecConfigPath: DefaultChainspecFile,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: "text",
		},
		Storage:           storage.DefaultConfig(),
		ContractRuntime:   contractruntime.DefaultConfig(),
		Network:           smallnetwork.DefaultConfig(),
		Consensus:         consensus.DefaultConfig(),
		BlockProposer:     blockproposer.DefaultConfig(),
		BlockValidator:    blockvalidator.DefaultConfig(),
		DeployAcceptor:    deployacceptor.DefaultConfig(),
		Gossip:            gossiper.DefaultConfig(),
		RestServer:        restserver.DefaultConfig(),
		RpcServer:         rpcserver.DefaultConfig(),
		EventStreamServer: eventstreamserver.DefaultConfig(),
	}
}

// Load reads dir/config.toml over the defaults. A missing file is not an
// error. v may carry flag bindings; a fresh viper is used when nil.
func Load(dir string, v *viper.Viper) (common.WithDir[*Config], error) {
	if v == nil {
		v = viper.New()
	}
	c := NewDefaultConfig()

	v.SetConfigName(DefaultConfigName)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return common.WithDir[*Config]{}, errors.Wrapf(err, "reading config in %s", dir)
		}
	}

	if err := v.Unmarshal(c); err != nil {
		return common.WithDir[*Config]{}, errors.Wrap(err, "decoding config")
	}

	if err := c.Validate(); err != nil {
		return common.WithDir[*Config]{}, err
	}

	return common.NewWithDir(dir, c), nil
}

// Validate checks the fields that have no usable zero value.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Logger returns a formatted logrus Entry, with prefix set to "casper".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = NewLogger(c.Logging)
	}
	return c.logger.WithField("prefix", "casper")
}

// SetLogger replaces the logger returned by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// NewLogger builds the logger described by conf.
func NewLogger(conf LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.Level = LogLevel(conf.Level)

	var formatter logrus.Formatter = new(prefixed.TextFormatter)
	if conf.Format == "json" {
		formatter = new(logrus.JSONFormatter)
	}
	logger.Formatter = formatter

	if conf.File != "" {
		if _, err := os.OpenFile(conf.File, os.O_CREATE|os.O_WRONLY, 0666); err != nil {
			logger.WithError(err).Warnf("Failed to open %s, logging to stderr only", conf.File)
		} else {
			logger.Hooks.Add(lfshook.NewHook(conf.File, &logrus.JSONFormatter{}))
		}
	}

	return logger
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
