// Package main is the papersim CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultConfigPath = "/usr/local/etc/papersim/config.yaml"

type app struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "papersim",
		Short: "Find papers similar to a title and abstract",
		Long: `papersim indexes a corpus of papers and finds the ones most similar to
a given title and abstract. The title and abstract can also be extracted
from a PDF.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.AddCommand(
		a.serverCmd(),
		a.searchCmd(),
		a.extractCmd(),
		a.importCmd(),
		a.similarCmd(),
		a.deleteCmd(),
		a.statusCmd(),
		a.rebuildCmd(),
		versionCmd(),
	)
	return root
}

// loadConfig loads config from path. When path is the default, config.yaml
// in the current directory wins if present, so running from a project
// checkout picks up the project's config. A missing file yields defaults.
// Returns the config and the path that was actually used.
func loadConfig(path string) (*config.Config, string, error) {
	config.LoadDotEnv(".env")
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the configuration and creates the logger. Only the server
// logs at info level; other commands stay quiet unless debugging.
func (a *app) setup(verbose bool) (*config.Config, *zap.Logger, error) {
	cfg, path, err := loadConfig(a.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	debug := cfg.Debug || a.debug
	logger, err := newLogger(debug, verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return cfg, logger, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "papersim version %s\n", version)
		},
	}
}
