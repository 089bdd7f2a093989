package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/penhub/pushkit/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "pushkit",
	Short: "Penhub push notification toolkit",
	Long:  "Subscription registry and device agent for Penhub push notifications",
}

func init() {
	rootCmd.AddCommand(cmd.RegistryCmd)
	rootCmd.AddCommand(cmd.AgentCmd)
	rootCmd.AddCommand(cmd.KeysCmd)
	rootCmd.AddCommand(cmd.TokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
