package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pedrohavay/docmeta/meta"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// app carries what every command needs: configuration, a logger and the
// model, loaded on first use.
type app struct {
	v      *viper.Viper
	logger *zap.Logger
	model  *meta.Model
}

func newApp() *app {
	v := viper.New()
	v.SetDefault("model.path", "schema")
	v.SetDefault("log.level", "info")
	v.SetConfigName("docmeta")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("DOCMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &app{v: v, logger: zap.NewNop()}
}

func (a *app) init() error {
	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	a.logger = newLogger(a.v.GetString("log.level"))
	return nil
}

// newLogger builds a development logger for debug output and a production
// logger otherwise, falling back to a no-op logger.
func newLogger(level string) *zap.Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	var (
		logger *zap.Logger
		err    error
	)
	if lvl == zapcore.DebugLevel {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (a *app) loadModel() (*meta.Model, error) {
	if a.model != nil {
		return a.model, nil
	}
	m, err := meta.NewModel(a.v.GetString("model.path"), meta.WithModelLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.model = m
	return m, nil
}

func newRootCommand(a *app) *cobra.Command {
	var noColor, verbose bool
	rootCmd := &cobra.Command{
		Use:   "docmeta",
		Short: "Inspect entity metadata and composite field trees",
		Long: color.CyanString(`docmeta - entity metadata tooling

Loads entity definitions from a directory of YAML files and builds the
composite metadata a request needs: the entity's field tree with every
reference required by its projections and queries expanded in place.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if verbose {
				a.v.Set("log.level", "debug")
			}
			return a.init()
		},
	}
	rootCmd.PersistentFlags().String("model", "", "Directory of entity definitions (default \"schema\")")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	_ = a.v.BindPFlag("model.path", rootCmd.PersistentFlags().Lookup("model"))

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newEntitiesCommand(a))
	rootCmd.AddCommand(newTreeCommand(a))
	rootCmd.AddCommand(newFieldsCommand(a))
	rootCmd.AddCommand(newResolveCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newGraphCommand(a))
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()
			titleColor.Fprint(out, "docmeta version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}

func main() {
	a := newApp()
	rootCmd := newRootCommand(a)
	err := rootCmd.Execute()
	_ = a.logger.Sync()
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(1)
	}
}
