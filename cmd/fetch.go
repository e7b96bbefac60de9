package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reliefops/shelterfeed/internal/fetcher"
	"github.com/reliefops/shelterfeed/internal/shelter"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and print normalized shelter records",
	Long: `Fetch the shelter feed once, normalize it, and print the record count
plus a preview of the first records as indented JSON.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		preview, _ := cmd.Flags().GetInt("preview")

		log := zap.L().With(zap.String("command", "fetch"))

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.Feed.UserAgent,
			Timeout:   time.Duration(cfg.Feed.TimeoutSecs) * time.Second,
		})
		n := shelter.NewNormalizer(f, cfg.Feed.URL)

		log.Info("fetching shelter feed", zap.String("url", cfg.Feed.URL))
		shelters, err := n.FetchAndNormalize(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}
		log.Info("feed normalized", zap.Int("records", len(shelters)))

		fmt.Fprintf(cmd.OutOrStdout(), "fetched %d shelters\n", len(shelters))
		return printPreview(cmd.OutOrStdout(), shelters, preview)
	},
}

func init() {
	fetchCmd.Flags().Int("preview", 3, "number of records to print")
	rootCmd.AddCommand(fetchCmd)
}

// printPreview writes up to n records as indented JSON.
func printPreview(w io.Writer, shelters []shelter.Shelter, n int) error {
	if n < 0 {
		n = 0
	}
	if n > len(shelters) {
		n = len(shelters)
	}
	for _, s := range shelters[:n] {
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return eris.Wrap(err, "fetch: render record")
		}
		fmt.Fprintln(w, string(out))
	}
	return nil
}
