package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func newAdminTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "admin-token",
		Short: "Generate a shared secret for the admin.token config field",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := generateAdminToken()
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

// generateAdminToken produces a 256-bit hex-encoded secret. It is
// printed once and never stored by this command; the operator is
// responsible for placing it in admin.token (or PRREVIEW_ADMIN_TOKEN)
// and restarting serve.
func generateAdminToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("admin-token: generate: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
