// Command ppdb renders PPDB poster prompts from a campaign YAML file and,
// with a Gemini API key, generates the poster image.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"nanno-banana-ppdb/internal/campaign"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ppdb",
		Short:        "PPDB poster prompt studio",
		SilenceUsage: true,
	}
	root.AddCommand(newRenderCmd(), newGenerateCmd(), newKeyCmd())
	return root
}

func loadCampaign(path string) (campaign.Record, error) {
	if path == "" {
		return campaign.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return campaign.Record{}, err
	}
	defer f.Close()

	rec, err := campaign.LoadYAML(f, time.Now())
	if err != nil {
		return campaign.Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
