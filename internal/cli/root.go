package cli

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/truthcheck/truthcheck/internal/config"
)

var (
	cfgFile  string
	verbose  bool
	logLevel string

	// cfg is the effective configuration, loaded once before any command runs.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "truthcheck",
	Short: "TruthCheck - Evidence-based verification of natural language claims",
	Long: `TruthCheck verifies short factual claims against public knowledge sources.

For each claim it derives a search query, retrieves candidate evidence from
configured sources, weights every passage by the credibility of its domain
and its semantic closeness to the claim, judges each claim/evidence pair
with an ensemble of inference models, and aggregates the weighted votes
into a single verdict: true, false, neutral, or low confidence.

A verdict is a measure of evidential support, not an oracle's ruling.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if verbose {
			cfg.Output.Verbose = true
			cfg.Logging.Level = "debug"
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		return config.InitLogger(cfg.Logging)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("truthcheck v0.1.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.truthcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}
