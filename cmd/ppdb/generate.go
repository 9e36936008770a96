package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nanno-banana-ppdb/internal/config"
	"nanno-banana-ppdb/internal/credentials"
	"nanno-banana-ppdb/internal/gemini"
	"nanno-banana-ppdb/internal/httpclient"
	"nanno-banana-ppdb/internal/poster"
)

func newGenerateCmd() *cobra.Command {
	var file, out, apiKey string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the poster image with Gemini",
		Long: `Generate sends the rendered prompt to the Gemini image model once and
writes the first returned image to --out.

The key is taken from --api-key, then the stored key (ppdb key set), then
GEMINI_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := loadCampaign(file)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg, cmd.ErrOrStderr())

			keys, err := credentials.Open(cmd.Context(), cfg.CredentialsPath)
			if err != nil {
				return err
			}
			defer keys.Close()

			gem := gemini.New(gemini.Options{
				APIKey:     cfg.GeminiAPIKey,
				BaseURL:    cfg.GeminiBaseURL,
				APIVersion: cfg.GeminiAPIVersion,
				Model:      cfg.GeminiModel,
				HTTPClient: httpclient.New(httpclient.Options{
					PreferIPv4: cfg.PreferIPv4,
					Timeout:    cfg.HTTPTimeout(),
				}),
				Logger: logger,
			})
			svc := poster.New(poster.Options{Requestor: gem, Keys: keys, Logger: logger})

			res := svc.GenerateImage(cmd.Context(), "", rec, apiKey)
			if res.Kind != poster.KindImage {
				if res.ReopenCredential {
					return fmt.Errorf("%s (set one with: ppdb key set <API_KEY>)", res.Message)
				}
				return errors.New(res.Message)
			}

			if err := os.WriteFile(out, res.Image.Data, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes)\n", out, res.Image.MIMEType, len(res.Image.Data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "campaign YAML file")
	cmd.Flags().StringVarP(&out, "out", "o", "poster.png", "output image path")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Gemini API key for this call only")
	return cmd
}
