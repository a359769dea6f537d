package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	host    string
	port    int
	version = "dev" // Set by build
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wunderlist-login",
	Short: "Sign users in with their Wunderlist account",
	Long: `wunderlist-login runs the OAuth 2.0 authorization code flow against
Wunderlist and links each signed-in user to a local account.

Endpoints:
  GET /auth/wunderlist            redirect to Wunderlist
  GET /auth/wunderlist/callback   complete the login
  GET /accounts/{id}              show a linked account
  GET /health                     health check`,
	Version: version,
	// Default to serve command when no subcommand is specified
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "wunderlist-login.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&host, "host", "0.0.0.0", "Server host address")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 4180, "Server port number")
}
