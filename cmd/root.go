package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reliefops/shelterfeed/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "shelterfeed",
	Short: "Hurricane shelter feed normalizer",
	Long: `Queries the public hurricane evacuation shelter feature service and
normalizes the returned features into a fixed record schema.`,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return bootstrap() },
	PersistentPostRun: func(*cobra.Command, []string) { _ = zap.L().Sync() },
}

// bootstrap loads configuration and installs the global logger. cfg stays nil
// if either step fails, so subcommands never see a half-initialized config.
func bootstrap() error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
