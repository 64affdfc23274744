// Command metricstore serves and manipulates metric and evaluation
// parameter stores.
package main

import (
	"fmt"
	"os"

	"github.com/kylerisse/metricstore/pkg/config"
	"github.com/kylerisse/metricstore/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const logLevelEnv = "METRICSTORE_LOG_LEVEL"

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	verbose    bool
	logger     *logrus.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "metricstore",
		Short: "Store validation metrics and serve them back as evaluation parameters",
		Long: `metricstore keeps metric values keyed by run, data asset, expectation suite,
metric name and metric kwargs in a pluggable backend (memory, filesystem or
database) and serves the values of a run back as evaluation parameters.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			a.logger = newLogger(a.verbose)
			a.logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("METRICSTORE_CONFIG"), "path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newBindParamsCmd(a),
		newBackendsCmd(),
		newConfigCmd(a),
		newDomainCmd(),
		newInitCmd(a),
	)
	return root
}

// newLogger returns a logger at debug level when verbose is set, otherwise
// at the level named by METRICSTORE_LOG_LEVEL (default info).
func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return log
	}

	logLevel := os.Getenv(logLevelEnv)
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Warnf("Invalid %s '%s', defaulting to 'info'", logLevelEnv, logLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (a *app) buildStores() (*config.Stores, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	stores, err := cfg.Build(store.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build stores: %w", err)
	}
	return stores, nil
}
