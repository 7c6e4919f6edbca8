package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/truthcheck/truthcheck/internal/pipeline"
)

var (
	jsonOut       bool
	noCache       bool
	enrichPages   bool
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Verify a single claim against public knowledge sources",
	Long: `Verify runs one claim through the full pipeline:
- Derive a compact search query from the claim
- Retrieve candidate evidence from the configured sources
- Weight evidence by domain credibility and semantic relevance
- Judge every claim/evidence pair with the inference model ensemble
- Aggregate the weighted votes into a verdict with confidence

Example:
  truthcheck verify "Water boils at 100 degrees Celsius at sea level"
  truthcheck verify "The Great Wall is visible from space" --json
  truthcheck verify "Honey never spoils" --no-cache --timeout 1m`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&jsonOut, "json", false, "print the verdict as JSON instead of text")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the verdict cache (force fresh verification)")
	verifyCmd.Flags().BoolVar(&enrichPages, "enrich", false, "fetch source pages to upgrade thin evidence snippets")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 2*time.Minute, "overall verification timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	claim := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	if noCache {
		cfg.Cache.Enabled = false
	}
	if enrichPages {
		cfg.Enrich.Enabled = true
	}
	if jsonOut {
		cfg.Output.Format = "json"
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s\n", claim)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", verifyTimeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg)

	verdict, err := p.Verify(ctx, claim)
	if err != nil {
		return eris.Wrap(err, "verify")
	}

	if cfg.Output.Format == "json" {
		return renderJSON(os.Stdout, verdict)
	}
	renderText(os.Stdout, verdict, cfg.Output.Verbose)
	return nil
}
