package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/secrets"
)

func NewSecretCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the store password in the OS keychain",
	}

	var backend string
	set := &cobra.Command{
		Use:   "set",
		Short: "Read the store password from stdin and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			account := secrets.StoreKeyringAccount(backend)
			if err := secrets.SetStorePassword(account, strings.TrimRight(line, "\r\n")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s/%s\n", secrets.KeyringService, account)
			return nil
		},
	}
	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return secrets.DeleteStorePassword(secrets.StoreKeyringAccount(backend))
		},
	}
	cmd.PersistentFlags().StringVar(&backend, "backend", "postgres", "store backend the password belongs to")

	cmd.AddCommand(set, del)
	return cmd
}
