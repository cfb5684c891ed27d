// Command netwarden monitors routers and Windows servers and serves the
// results over HTTP.
package main

//	@title			netwarden API
//	@version		0.1.0
//	@description	Router and Windows server monitoring API.
//	@BasePath		/api/v1

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/HerbHall/netwarden/api/swagger"
	"github.com/HerbHall/netwarden/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "netwarden",
	Short: "Network device monitoring service",
	Long: `netwarden pings registered routers and Windows servers every minute,
collects CPU, memory and uptime over SSH, SNMP or WinRM, and journals each
result to the database and a rotating log file.`,
	SilenceUsage: true,
	// Running without a subcommand starts the server.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file")
	rootCmd.AddCommand(serveCmd, checkCmd, vaultCmd, logsCmd, inventoryCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
