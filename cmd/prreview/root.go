package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bkyoung/prreview/internal/config"
	"github.com/bkyoung/prreview/internal/version"
)

// configFlags are the flags every subcommand shares for locating and
// naming the configuration file, mirroring config.LoaderOptions.
var configFile string

// NewRootCommand constructs the prreview CLI: serve (C6 gateway),
// worker (C7/C9/C10 consumer), migrate (postgres schema), and
// admin-token (mint the operator-surface shared secret).
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "prreview",
		Short:   "Automated pull request code review service",
		Version: version.Value(),
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a prreview.yaml config file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newWorkerCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newAdminTokenCommand())

	return root
}

// loadConfig resolves the merged configuration the same way every
// subcommand needs it: file + environment, via config.Load.
func loadConfig() (config.Config, error) {
	paths := defaultConfigPaths()
	if configFile != "" {
		paths = append([]string{filepath.Dir(configFile)}, paths...)
	}
	return config.Load(config.LoaderOptions{
		ConfigPaths: paths,
		FileName:    configFileName(),
		EnvPrefix:   "PRREVIEW",
	})
}

func configFileName() string {
	if configFile == "" {
		return "prreview"
	}
	base := filepath.Base(configFile)
	return base[:len(base)-len(filepath.Ext(base))]
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "prreview"))
	}
	return paths
}
