package cmd

import (
	"context"

	"github.com/ideamans/wunderlistauth/pkg/config"
	"github.com/ideamans/wunderlistauth/pkg/logging"
	"github.com/ideamans/wunderlistauth/pkg/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the login server",
	Long: `Start the login server with the specified configuration.

The server will:
- Load and validate the configuration file
- Open the state and account stores (memory, LevelDB or Redis)
- Register the Wunderlist strategy
- Reload the strategy when the configuration file changes
- Handle graceful shutdown on SIGTERM/SIGINT`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Logging settings come from the file; a broken file is reported by
	// server.Run with the full validation message.
	var logCfg config.LoggingConfig
	if cfg, err := config.NewFileLoader(cfgFile).Load(); err == nil {
		logCfg = cfg.Logging
	}

	logger, closer := logging.NewWithFile("main", logging.ParseLevel(logCfg.Level), logCfg.Color, logCfg.File)
	defer closer.Close()

	cmd.SilenceUsage = true
	return server.Run(context.Background(), server.RunConfig{
		ConfigPath: cfgFile,
		Host:       host,
		Port:       port,
		HostSet:    cmd.Flags().Changed("host"),
		PortSet:    cmd.Flags().Changed("port"),
		Logger:     logger,
		Version:    version,
	})
}
