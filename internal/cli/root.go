// Package cli provides the command-line interface for stockroom.
package cli

import (
	"os"

	"github.com/raphaelgruber/stockroom-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	actor     string

	// API client, created before every command that talks to the server.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stockroom",
	Short: "Bulk ingestion client for the stockroom inventory server",
	Long: `Stockroom pushes inventory data into the stockroom server in chunks:
item and individual rows from JSON exports, and file attachments for
existing records.

Each run keeps its own progress and error state on the client side, so
an interrupted run can be resumed by re-sending the remaining chunks.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version and help commands never talk to the server
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if actor == "" {
			actor = os.Getenv("USER")
		}
		if actor == "" {
			actor = "stockroom-cli"
		}

		apiClient = client.New(serverURL, actor)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default $STOCKROOM_SERVER_URL or http://localhost:8380)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "actor recorded on created records (default $USER)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(errorsCmd)
	rootCmd.AddCommand(runCmd)
}
