package cmd

import (
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
)

// KeysCmd generates a VAPID key pair for the registry's push identity.
var KeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate a VAPID key pair",
	Long:  "Generate the VAPID key pair the registry signs push requests with; the public key is also the server key devices subscribe against",
	RunE: func(cmd *cobra.Command, args []string) error {
		private, public, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			return fmt.Errorf("failed to generate VAPID keys: %w", err)
		}
		fmt.Printf("PUSHKIT_VAPID_PUBLIC_KEY=%s\n", public)
		fmt.Printf("PUSHKIT_VAPID_PRIVATE_KEY=%s\n", private)
		return nil
	},
}
