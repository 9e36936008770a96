package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nanno-banana-ppdb/internal/prompt"
)

func newRenderCmd() *cobra.Command {
	var file, format string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the poster prompt as text or as the JSON envelope",
		Long: `Render a campaign file into the poster prompt.

Without --file the default campaign is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := loadCampaign(file)
			if err != nil {
				return err
			}

			switch format {
			case "text":
				fmt.Fprintln(cmd.OutOrStdout(), prompt.BuildPrompt(rec))
			case "json":
				data, err := prompt.BuildEnvelope(rec).MarshalIndent()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "campaign YAML file")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
