package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/config"
	"github.com/shivlim/casper-node/src/reactor"
	"github.com/shivlim/casper-node/src/reactor/initializer"
	"github.com/shivlim/casper-node/src/reactor/validator"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewValidatorCmd returns the command that runs a validator node: first the
// initializer, then the validator reactor it hands over to.
func NewValidatorCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "validator <config-dir>",
		Short: "Run a validator node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(args[0], v)
			if err != nil {
				return err
			}
			return runValidator(conf)
		},
	}

	addValidatorFlags(cmd, v)

	return cmd
}

// addValidatorFlags adds flags to the validator command. Flags take
// precedence over config.toml.
func addValidatorFlags(cmd *cobra.Command, v *viper.Viper) {
	defaults := config.NewDefaultConfig()

	flags := []struct {
		key, name, value, usage string
	}{
		{"logging.level", "log", defaults.Logging.Level, "debug, info, warn, error, fatal, panic"},
		{"logging.file", "log-file", "", "Also write JSON log entries to this file"},
		{"network.bind_address", "listen", defaults.Network.BindAddress, "Listen IP:Port for the small network"},
		{"rest_server.address", "rest-listen", defaults.RestServer.Address, "Listen IP:Port for the REST server"},
		{"rpc_server.address", "rpc-listen", defaults.RpcServer.Address, "Listen IP:Port for the JSON-RPC server"},
		{"event_stream_server.address", "events-listen", defaults.EventStreamServer.Address, "Listen IP:Port for the event stream server"},
	}

	for _, f := range flags {
		cmd.Flags().String(f.name, f.value, f.usage)
		if err := v.BindPFlag(f.key, cmd.Flags().Lookup(f.name)); err != nil {
			panic(err)
		}
	}
}

func runValidator(conf common.WithDir[*config.Config]) error {
	logger := conf.Value.Logger()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := runInitializer(ctx, conf, registry, logger)
	if err != nil {
		logger.WithError(err).Error("Initialization failed")
		return err
	}

	runner, err := validator.NewRunner(h, reactor.RunnerConfig{
		Name:     "validator",
		Seed:     conf.Value.Node.RngSeed,
		Registry: registry,
		Logger:   logger,
	}, registry)
	if err != nil {
		logger.WithError(err).Error("Cannot start validator")
		return err
	}

	r := runner.Reactor()
	logger.WithFields(logrus.Fields{
		"address": r.Address(),
		"rest":    r.RestAddress(),
		"rpc":     r.RpcAddress(),
		"events":  r.EventStreamAddress(),
	}).Info("Validator running")

	err = runner.Run(ctx)
	runner.Shutdown()
	if cerr := r.Close(); cerr != nil {
		logger.WithError(cerr).Warn("Closing validator")
	}

	if err != nil {
		logger.WithError(err).Error("Validator stopped")
		return err
	}

	logger.Info("Validator stopped")
	return nil
}

func runInitializer(ctx context.Context, conf common.WithDir[*config.Config], registry *prometheus.Registry, logger *logrus.Entry) (initializer.Handoff, error) {
	runner, err := reactor.NewRunner(reactor.RunnerConfig{
		Name:     "initializer",
		Seed:     conf.Value.Node.RngSeed,
		Registry: registry,
		Logger:   logger,
	}, initializer.Constructor(conf, registry))
	if err != nil {
		return initializer.Handoff{}, err
	}

	err = runner.Run(ctx)
	runner.Shutdown()

	r := runner.Reactor()
	if err == nil {
		var h initializer.Handoff
		if h, err = r.Handoff(); err == nil {
			return h, nil
		}
	}

	r.Close()
	return initializer.Handoff{}, err
}
