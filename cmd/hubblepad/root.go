package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/hubblepad/internal/config"
	"github.com/harunnryd/hubblepad/internal/logger"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "hubblepad",
	Short:   "Hubblepad work item dashboard",
	Long:    `Hubblepad serves a local work item dashboard and keeps it fresh by running user-defined hook commands.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hubblepad/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "server port")
	rootCmd.PersistentFlags().String("data.root", "", "project root that hook cwd values resolve against (default is the working directory)")
	rootCmd.PersistentFlags().String("data.dir", "", "directory holding workitems.json and hooks.json (default is <root>/data)")
}
