package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nanno-banana-ppdb/internal/config"
	"nanno-banana-ppdb/internal/credentials"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored Gemini API key",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <api-key>",
			Short: "Store the API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withKeys(cmd, func(keys *credentials.Store) error {
					if err := keys.SetAPIKey(cmd.Context(), "", args[0]); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "saved", credentials.Mask(args[0]))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the stored API key, masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withKeys(cmd, func(keys *credentials.Store) error {
					key, err := keys.APIKey(cmd.Context(), "")
					if err != nil {
						return err
					}
					if key == "" {
						fmt.Fprintln(cmd.OutOrStdout(), "no key stored")
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), credentials.Mask(key))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the stored API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withKeys(cmd, func(keys *credentials.Store) error {
					if err := keys.DeleteAPIKey(cmd.Context(), ""); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "deleted")
					return nil
				})
			},
		},
	)
	return cmd
}

func withKeys(cmd *cobra.Command, fn func(*credentials.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	keys, err := credentials.Open(cmd.Context(), cfg.CredentialsPath)
	if err != nil {
		return err
	}
	defer keys.Close()
	return fn(keys)
}
