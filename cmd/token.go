package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/penhub/pushkit/pkg/registry"
)

var (
	tokenUserID string
	tokenTTL    time.Duration
)

// TokenCmd issues a bearer token for the registry API.
var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a registry bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("PUSHKIT_JWT_SECRET")
		if secret == "" {
			return fmt.Errorf("PUSHKIT_JWT_SECRET must be set")
		}
		token, err := registry.IssueToken(secret, tokenUserID, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	TokenCmd.Flags().StringVarP(&tokenUserID, "user", "u", "", "User ID to embed in the token")
	TokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	if err := TokenCmd.MarkFlagRequired("user"); err != nil {
		fmt.Printf("Warning: failed to mark user flag required: %v\n", err)
	}
}
