package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the slotproxy application
var rootCmd = &cobra.Command{
	Use:   "slotproxy",
	Short: "Serves bookable calendar slots as labelled choices",
	Long: `slotproxy lists upcoming events of a Google Calendar that match a search
term and returns them as display-ready slot choices for booking forms.

It authenticates as a Google service account and exposes:
  - GET /slots: the current slot choices
  - GET /config and POST /config/update: the runtime slot configuration`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "slotproxy version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
