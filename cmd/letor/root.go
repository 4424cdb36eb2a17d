package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/engine"
	"github.com/gcbaptista/go-letor/internal/logging"
	"github.com/gcbaptista/go-letor/internal/metrics"
	"github.com/gcbaptista/go-letor/store"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	file   *config.File
	logger *logging.Logger

	stdin          io.Reader
	stdout, stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "letor",
		Short: "Group-aware tooling for learning-to-rank datasets",
		Long: `letor reads datasets in the LETOR / SVM-rank text format and partitions
them without ever separating the records of one query group.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML or JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		newSplitCmd(a),
		newFoldCmd(a),
		newTransformCmd(a),
		newTrainCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

// setup loads the configuration file and builds the logger. Flags win over
// file values.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.configPath != "" {
		file, err := config.LoadFile(a.configPath)
		if err != nil {
			return err
		}
		a.file = file
	} else {
		a.file = config.NewFile()
		a.file.ObjectStore.ApplyEnv()
	}

	settings := a.file.Logging
	override(cmd, "log-level", &settings.Level, a.logLevel)
	override(cmd, "log-format", &settings.Format, a.logFormat)
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}
	return a.newLogger(settings)
}

func (a *app) newLogger(settings config.LoggingSettings) error {
	logger, err := logging.New(settings, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// newEngine builds an engine whose local paths resolve against root.
func (a *app) newEngine(root string, maxWorkers int, m *metrics.Metrics) (*engine.Engine, error) {
	resolver, err := store.NewResolver(root, a.file.ObjectStore)
	if err != nil {
		return nil, err
	}
	resolver.Stdin = a.stdin

	return engine.New(engine.Options{
		Resolver:   resolver,
		Logger:     a.logger,
		Metrics:    m,
		MaxWorkers: maxWorkers,
	}), nil
}

// override copies v into dst when the named flag was given.
func override[T any](cmd *cobra.Command, name string, dst *T, v T) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}
